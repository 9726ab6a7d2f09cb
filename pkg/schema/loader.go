package schema

import "context"

// Loader fetches the raw bytes behind a Source. internal/loader provides the
// file, fs.FS and HTTP implementation.
type Loader interface {
	Load(ctx context.Context, src Source) (Document, error)
}
