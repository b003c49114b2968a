package audio

import (
	"strings"
	"testing"
)

func TestChunkTextRespectsLimit(t *testing.T) {
	text := strings.Repeat("The night was quiet. Then the bell rang twice, and nobody moved. ", 20)
	chunks := chunkText(text, 200)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Fatalf("chunk %d too long: %d", i, len(c))
		}
		if c == "" {
			t.Fatalf("chunk %d empty", i)
		}
	}
	if got := strings.Join(chunks, " "); got != strings.Join(strings.Fields(text), " ") {
		t.Fatalf("chunks lost text")
	}
}

func TestChunkTextSplitsLongWord(t *testing.T) {
	chunks := chunkText(strings.Repeat("x", 450), 200)
	if len(chunks) != 3 || len(chunks[0]) != 200 || len(chunks[2]) != 50 {
		t.Fatalf("unexpected chunks %v", len(chunks))
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := chunkText("   ", 200); chunks != nil {
		t.Fatalf("expected nil, got %v", chunks)
	}
}
