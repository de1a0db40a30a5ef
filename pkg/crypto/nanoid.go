package crypto

import (
	"crypto/rand"
	"errors"
	"math"
	"unicode/utf8"
)

const (
	defaultAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	defaultSize     int    = 21
	maxAlphabetSize int    = 255
	minAlphabetSize int    = 8
)

var (
	ErrAlphabetTooLong     = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetTooShort    = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetInvalidUTF8 = errors.New("alphabet must contain valid UTF-8")
	ErrAlphabetNotASCII    = errors.New("alphabet must contain only ASCII characters")
	ErrInvalidSize         = errors.New("id size must be positive")
)

// IDOptions configures an IDGenerator. Zero values select the defaults.
type IDOptions struct {
	Alphabet string
	Size     int
	Prefix   string // prepended verbatim, e.g. "req_"
}

// IDGenerator produces URL-safe random ids (nanoid algorithm)
type IDGenerator struct {
	alphabet string
	mask     int
	size     int
	prefix   string
}

// smallest 2^n-1 mask covering every alphabet index
func getMask(alphabetLen int) int {
	for i := 1; i <= 8; i++ {
		mask := (2 << uint(i)) - 1
		if mask > alphabetLen-1 {
			return mask
		}
	}
	return maxAlphabetSize
}

func NewIDGenerator(opts IDOptions) (*IDGenerator, error) {
	alphabet := opts.Alphabet
	if alphabet == "" {
		alphabet = defaultAlphabet
	}

	size := opts.Size
	if size == 0 {
		size = defaultSize
	}
	if size < 0 {
		return nil, ErrInvalidSize
	}

	if !utf8.ValidString(alphabet) {
		return nil, ErrAlphabetInvalidUTF8
	}
	// New indexes the alphabet by byte
	for _, r := range alphabet {
		if r > 127 {
			return nil, ErrAlphabetNotASCII
		}
	}
	if len(alphabet) > maxAlphabetSize {
		return nil, ErrAlphabetTooLong
	}
	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}

	return &IDGenerator{
		alphabet: alphabet,
		mask:     getMask(len(alphabet)),
		size:     size,
		prefix:   opts.Prefix,
	}, nil
}

// New returns a fresh id
func (g *IDGenerator) New() (string, error) {
	alphabetLen := len(g.alphabet)
	step := int(math.Ceil(1.6 * float64(g.mask*g.size) / float64(alphabetLen)))

	id := make([]byte, g.size)
	buffer := make([]byte, step)

	for position := 0; position < g.size; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}

		for i := 0; i < step && position < g.size; i++ {
			// bytes outside the alphabet are dropped to keep the distribution uniform
			index := buffer[i] & byte(g.mask)
			if int(index) < alphabetLen {
				id[position] = g.alphabet[index]
				position++
			}
		}
	}

	return g.prefix + string(id), nil
}

var requestIDs, _ = NewIDGenerator(IDOptions{Size: 16, Prefix: "req_"})

// RequestID returns an id for the X-Request-ID header.
// It falls back to a fixed marker if the system random source fails.
func RequestID() string {
	id, err := requestIDs.New()
	if err != nil {
		return "req_unavailable"
	}
	return id
}
