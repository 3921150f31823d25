package storage

// BlockStore abstracts the file layer as its consumers see it, foremost the
// buffer pool that will sit on top of it. *FileManager is the disk-backed
// implementation; the interface pins down exactly the surface promised to
// consumers and keeps them testable against in-memory stand-ins.
//
// Implementations must be safe for concurrent use: Read, Write and Append may
// be called from multiple goroutines, and each call is one indivisible unit
// of work.
type BlockStore interface {
	// Read transfers the block's bytes into p and reports how many were
	// transferred. A short or zero count with a nil error means the block
	// does not exist yet; callers treat that as an empty block.
	Read(blk BlockID, p *Page) (int, error)
	// Write transfers p's full buffer to the block, durably, and reports
	// bytes written.
	Write(blk BlockID, p *Page) (int, error)
	// Append extends the file by one zeroed block and returns its BlockID.
	Append(fileName string) (BlockID, error)
	// BlockCount reports how many whole blocks the file holds.
	BlockCount(fileName string) (int32, error)
	// NewPage allocates an I/O-backed page of exactly one block.
	NewPage() *Page
	// BlockSize is the size in bytes of every block this store manages.
	BlockSize() int
}

var _ BlockStore = (*FileManager)(nil)
