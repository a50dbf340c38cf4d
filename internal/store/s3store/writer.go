package s3store

import (
	"io"
	"sync"

	"github.com/go-git/go-billy/v5"
)

// fileWriterAt adapts a billy.File to io.WriterAt for the download manager,
// which writes blocks concurrently at arbitrary offsets.
type fileWriterAt struct {
	mu   sync.Mutex
	file billy.File
}

func newFileWriterAt(file billy.File) *fileWriterAt {
	return &fileWriterAt{file: file}
}

// WriteAt implements io.WriterAt.
func (w *fileWriterAt) WriteAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}
