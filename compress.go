package fl2

// A Compressor compresses whole buffers, keeping its workers and buffers
// between calls.
type Compressor struct {
	s *CStream
}

// NewCompressor returns a Compressor at the default level, using threads
// workers (0 means one per CPU).
func NewCompressor(threads int) *Compressor {
	return &Compressor{s: NewCStream(threads, false)}
}

// ThreadCount returns the number of workers.
func (c *Compressor) ThreadCount() int { return c.s.ThreadCount() }

// SetParameter changes one parameter for the following calls.
func (c *Compressor) SetParameter(p Parameter, value int) error {
	return c.s.SetParameter(p, value)
}

// Parameter returns the current value of a parameter.
func (c *Compressor) Parameter(p Parameter) (int, error) {
	return c.s.Parameter(p)
}

// Parameters returns the current parameters.
func (c *Compressor) Parameters() CompressionParameters {
	return c.s.Parameters()
}

// SetParameters replaces all parameters.
func (c *Compressor) SetParameters(p CompressionParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.s.cfg.params = p
	return nil
}

// DictSizeProperty returns the property byte of the streams the
// Compressor produces.
func (c *Compressor) DictSizeProperty() byte {
	return c.s.DictSizeProperty()
}

// Compress compresses src as one stream.
func (c *Compressor) Compress(src []byte) ([]byte, error) {
	if err := c.s.Init(0); err != nil {
		return nil, err
	}
	return c.s.compressAll(make([]byte, 0, CompressBound(len(src))), src)
}

// CompressLevel sets the compression level and compresses src.
func (c *Compressor) CompressLevel(src []byte, level int) ([]byte, error) {
	if err := c.SetParameter(ParamCompressionLevel, level); err != nil {
		return nil, err
	}
	return c.Compress(src)
}

// Close releases the workers.
func (c *Compressor) Close() error {
	return c.s.Close()
}

// Compress compresses src at a level from 1 to MaxCompressionLevel, on a
// single thread.
func Compress(src []byte, level int) ([]byte, error) {
	return CompressMT(src, level, 1)
}

// CompressMT compresses src at a level from 1 to MaxCompressionLevel, using
// threads workers (0 means one per CPU). The output does not depend on the
// number of threads.
func CompressMT(src []byte, level, threads int) ([]byte, error) {
	p, err := levelParameters(level, false)
	if err != nil {
		return nil, err
	}
	return CompressParams(src, p, threads)
}

// CompressParams compresses src with the parameters p.
func CompressParams(src []byte, p CompressionParameters, threads int) ([]byte, error) {
	s := NewCStream(threads, false)
	defer s.Close()
	if err := s.InitParams(p); err != nil {
		return nil, err
	}
	return s.compressAll(make([]byte, 0, CompressBound(len(src))), src)
}
