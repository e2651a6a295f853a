package model

// ManifestEntry overrides the derived display fields of one bottle
type ManifestEntry struct {
	Name     string `toml:"name"`
	ImageURL string `toml:"image_url"`
}

// Manifest maps bottle IDs to display overrides used during ingestion.
// A nil Manifest has no overrides.
type Manifest map[BottleID]ManifestEntry

// Resolve returns the ID, name and image URL for an image path. Values from
// the manifest win over the ones derived from the filename.
func (m Manifest) Resolve(path string) (BottleID, string, string) {
	id := BottleIDFromPath(path)
	name := BottleNameFromPath(path)
	imageURL := ImageURLFromPath(path)

	if entry, ok := m[id]; ok {
		if entry.Name != "" {
			name = entry.Name
		}
		if entry.ImageURL != "" {
			imageURL = entry.ImageURL
		}
	}
	return id, name, imageURL
}
