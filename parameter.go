package fl2

import (
	"fmt"
	"math/bits"
)

// A Parameter identifies one compression setting for SetParameter and
// Parameter.
type Parameter int

const (
	// ParamCompressionLevel reloads every compression setting from the
	// preset table. The format options are kept.
	ParamCompressionLevel Parameter = iota
	// ParamHighCompression selects the high compression preset table (1)
	// or the normal one (0), and reloads the current level.
	ParamHighCompression
	ParamDictionaryLog
	ParamDictionarySize
	ParamOverlapFraction
	ParamResetInterval
	ParamBufferResize
	ParamHybridChainLog
	ParamHybridCycles
	ParamSearchDepth
	ParamFastLength
	ParamDivideAndConquer
	ParamStrategy
	ParamLiteralCtxBits
	ParamLiteralPosBits
	ParamPosBits
	ParamOmitProperties
	ParamDoXXHash
	// ParamUseReferenceMF is not supported.
	ParamUseReferenceMF
)

var paramNames = [...]string{
	"CompressionLevel", "HighCompression", "DictionaryLog", "DictionarySize",
	"OverlapFraction", "ResetInterval", "BufferResize", "HybridChainLog",
	"HybridCycles", "SearchDepth", "FastLength", "DivideAndConquer",
	"Strategy", "LiteralCtxBits", "LiteralPosBits", "PosBits",
	"OmitProperties", "DoXXHash", "UseReferenceMF",
}

func (p Parameter) String() string {
	if p < 0 || int(p) >= len(paramNames) {
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
	return paramNames[p]
}

// settings is the parameter state shared by Compressor and CStream.
type settings struct {
	params CompressionParameters
	level  int
	high   bool
}

func defaultSettings() settings {
	return settings{params: DefaultParameters(), level: DefaultCompressionLevel}
}

// loadLevel replaces the compression settings with a preset, keeping the
// format options.
func (s *settings) loadLevel(level int, high bool) error {
	p, err := levelParameters(level, high)
	if err != nil {
		return err
	}
	p.OmitProperties = s.params.OmitProperties
	p.DoXXHash = s.params.DoXXHash
	s.params = p
	s.level = level
	s.high = high
	return nil
}

func boolValue(v int) (bool, error) {
	if v != 0 && v != 1 {
		return false, wrap(ParameterOutOfBound, fmt.Errorf("boolean parameter %d", v))
	}
	return v == 1, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *settings) set(param Parameter, v int) error {
	switch param {
	case ParamCompressionLevel:
		return s.loadLevel(v, s.high)
	case ParamHighCompression:
		high, err := boolValue(v)
		if err != nil {
			return err
		}
		return s.loadLevel(s.level, high)
	case ParamUseReferenceMF:
		return wrap(ParameterUnsupported, fmt.Errorf("%v", param))
	}

	p := s.params
	var err error
	switch param {
	case ParamDictionaryLog:
		if v < DictLogMin || v > DictLogMax {
			return wrap(ParameterOutOfBound, fmt.Errorf("dictionary log %d", v))
		}
		p.DictionarySize = 1 << uint(v)
	case ParamDictionarySize:
		p.DictionarySize = v
	case ParamOverlapFraction:
		p.OverlapFraction = v
	case ParamResetInterval:
		p.ResetInterval = v
	case ParamBufferResize:
		p.BufferResize = v
	case ParamHybridChainLog:
		p.ChainLog = v
	case ParamHybridCycles:
		p.HybridCycles = v
	case ParamSearchDepth:
		p.SearchDepth = v
	case ParamFastLength:
		p.FastLength = v
	case ParamDivideAndConquer:
		p.DivideAndConquer, err = boolValue(v)
	case ParamStrategy:
		p.Strategy = Strategy(v)
	case ParamLiteralCtxBits:
		p.LC = v
	case ParamLiteralPosBits:
		p.LP = v
	case ParamPosBits:
		p.PB = v
	case ParamOmitProperties:
		p.OmitProperties, err = boolValue(v)
	case ParamDoXXHash:
		p.DoXXHash, err = boolValue(v)
	default:
		return wrap(ParameterUnsupported, fmt.Errorf("%v", param))
	}
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

func (s *settings) get(param Parameter) (int, error) {
	p := &s.params
	switch param {
	case ParamCompressionLevel:
		return s.level, nil
	case ParamHighCompression:
		return boolInt(s.high), nil
	case ParamDictionaryLog:
		return bits.Len(uint(p.DictionarySize - 1)), nil
	case ParamDictionarySize:
		return p.DictionarySize, nil
	case ParamOverlapFraction:
		return p.OverlapFraction, nil
	case ParamResetInterval:
		return p.ResetInterval, nil
	case ParamBufferResize:
		return p.BufferResize, nil
	case ParamHybridChainLog:
		return p.ChainLog, nil
	case ParamHybridCycles:
		return p.HybridCycles, nil
	case ParamSearchDepth:
		return p.SearchDepth, nil
	case ParamFastLength:
		return p.FastLength, nil
	case ParamDivideAndConquer:
		return boolInt(p.DivideAndConquer), nil
	case ParamStrategy:
		return int(p.Strategy), nil
	case ParamLiteralCtxBits:
		return p.LC, nil
	case ParamLiteralPosBits:
		return p.LP, nil
	case ParamPosBits:
		return p.PB, nil
	case ParamOmitProperties:
		return boolInt(p.OmitProperties), nil
	case ParamDoXXHash:
		return boolInt(p.DoXXHash), nil
	}
	return 0, wrap(ParameterUnsupported, fmt.Errorf("%v", param))
}
