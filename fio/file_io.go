package fio

import "os"

// FileIO is the default implementation of IOManager, backed by an append-mode
// *os.File. It is the only IOManager the WAL uses in production; the
// interface exists so tests can substitute a faulty one.
type FileIO struct {
	fd *os.File
}

// NewFileIO opens (creating if necessary) file for append-mode read/write.
func NewFileIO(file string) (*FileIO, error) {
	fd, err := os.OpenFile(file, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &FileIO{fd: fd}, nil
}

func (f *FileIO) Read(buf []byte, offset int64) (int, error) {
	return f.fd.ReadAt(buf, offset)
}

func (f *FileIO) Write(data []byte) (int, error) {
	return f.fd.Write(data)
}

func (f *FileIO) Sync() error {
	return f.fd.Sync()
}

func (f *FileIO) Close() error {
	return f.fd.Close()
}

func (f *FileIO) Size() (int64, error) {
	info, err := f.fd.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Truncate shrinks the file to size bytes, used to drop a torn trailing
// record discovered during replay (§4.3 partial trailing record policy).
func (f *FileIO) Truncate(size int64) error {
	if err := f.fd.Truncate(size); err != nil {
		return err
	}
	_, err := f.fd.Seek(0, 2)
	return err
}

// Name returns the path of the underlying file, for diagnostics.
func (f *FileIO) Name() string {
	return f.fd.Name()
}
