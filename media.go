package evidenceangel

import "io"

// AddMedia stores a blob in the package's media store and returns its
// SHA-256 checksum. Storing the same bytes twice is a no-op: the
// checksum is content-addressed, so callers never have to check for
// duplicates themselves.
func (p *Package) AddMedia(data []byte, mimeType string) (string, error) {
	sha256, err := p.engine.AddMedia(data, mimeType)
	if err != nil {
		return "", classifyErr("add media", err)
	}
	return sha256, nil
}

// GetMedia resolves a media checksum to its declared MIME type and
// bytes.
func (p *Package) GetMedia(sha256 string) (mimeType string, data []byte, err error) {
	mimeType, data, err = p.engine.GetMedia(sha256)
	if err != nil {
		return "", nil, classifyErr("get media", err)
	}
	return mimeType, data, nil
}

// MediaReader returns a reader over a media checksum's bytes. The blob is
// first loaded in full into the package's in-memory media cache; the
// reader is a view over that buffer, not a stream from the archive.
func (p *Package) MediaReader(sha256 string) (mimeType string, r io.ReadSeeker, err error) {
	mimeType, r, err = p.engine.MediaReader(sha256)
	if err != nil {
		return "", nil, classifyErr("read media", err)
	}
	return mimeType, r, nil
}
