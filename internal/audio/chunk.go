package audio

import "strings"

// chunkText splits text into pieces of at most max bytes, breaking on
// sentence ends when possible and on spaces otherwise.
func chunkText(text string, max int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > max {
		cut := lastBreak(text[:max+1])
		if cut <= 0 {
			cut = max
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func lastBreak(s string) int {
	for _, sep := range []string{". ", "! ", "? ", "; ", ", "} {
		if i := strings.LastIndex(s, sep); i > len(s)/2 {
			return i + 1
		}
	}
	return strings.LastIndex(s, " ")
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
