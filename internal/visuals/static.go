package visuals

import (
	"story-shorts/internal/fallback"
	"story-shorts/internal/types"
)

var staticImages = []types.Image{
	{URL: "https://images.pexels.com/photos/1261728/pexels-photo-1261728.jpeg", AltText: "mystery scene"},
	{URL: "https://images.pexels.com/photos/1408221/pexels-photo-1408221.jpeg", AltText: "dramatic landscape"},
	{URL: "https://images.pexels.com/photos/1624438/pexels-photo-1624438.jpeg", AltText: "atmospheric scene"},
	{URL: "https://images.pexels.com/photos/1761279/pexels-photo-1761279.jpeg", AltText: "cinematic view"},
	{URL: "https://images.pexels.com/photos/1054713/pexels-photo-1054713.jpeg", AltText: "storytelling scene"},
	{URL: "https://images.pexels.com/photos/1097456/pexels-photo-1097456.jpeg", AltText: "narrative backdrop"},
	{URL: "https://images.pexels.com/photos/1229042/pexels-photo-1229042.jpeg", AltText: "fiction setting"},
	{URL: "https://images.pexels.com/photos/1416530/pexels-photo-1416530.jpeg", AltText: "story atmosphere"},
}

// StaticImages returns a fresh copy of the curated fallback set.
func StaticImages() []types.Image {
	out := make([]types.Image, len(staticImages))
	for i, img := range staticImages {
		img.SourceProvider = fallback.StaticProvider
		out[i] = img
	}
	return out
}
