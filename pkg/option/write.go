package option

// WriteProgressCallback reports mastering progress in bytes; totalBytes is
// the volume space size times 2048, and the last call has
// bytesWritten == totalBytes.
type WriteProgressCallback func(bytesWritten, totalBytes int)

// WriteOptions backs write(); BlockSize is validated against the single
// supported value (2048) rather than acted upon, since alternate block
// sizes are Unsupported.
type WriteOptions struct {
	BlockSize int
	Progress  WriteProgressCallback
}

type WriteOption func(*WriteOptions)

func DefaultWriteOptions() WriteOptions {
	return WriteOptions{BlockSize: 2048}
}

func WithBlockSize(size int) WriteOption {
	return func(o *WriteOptions) { o.BlockSize = size }
}

func WithWriteProgress(cb WriteProgressCallback) WriteOption {
	return func(o *WriteOptions) { o.Progress = cb }
}
