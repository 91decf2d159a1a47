package configagent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dtnkit/bpa/pkg/eid"
)

// scanner is a byte-offset cursor over one command's payload. It has no
// buffering concerns of its own — the whole command arrives as a single
// assembled byte slice — unlike pkg/codec's chunked streaming contract.
type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) next() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	b := s.data[s.pos]
	s.pos++
	return b, true
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.data) {
		return 0
	}
	return s.data[s.pos]
}

func (s *scanner) atEnd() bool { return s.pos >= len(s.data) }

func (s *scanner) tryConsume(b byte) bool {
	if s.peek() == b {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) expect(b byte) error {
	if !s.tryConsume(b) {
		got := "<eof>"
		if !s.atEnd() {
			got = fmt.Sprintf("%q", s.peek())
		}
		return fmt.Errorf("configagent: expected %q at offset %d, got %s", b, s.pos, got)
	}
	return nil
}

// readUntil consumes up to and including the next occurrence of delim,
// returning everything before it.
func (s *scanner) readUntil(delim byte) (string, error) {
	start := s.pos
	for s.pos < len(s.data) {
		if s.data[s.pos] == delim {
			out := string(s.data[start:s.pos])
			s.pos++
			return out, nil
		}
		s.pos++
	}
	return "", fmt.Errorf("configagent: unterminated field, expected %q", delim)
}

// readDigitsUntil consumes a run of ASCII digits terminated by (but not
// including) one of the bytes in delims, and parses it as a base-10 int64.
func (s *scanner) readDigitsUntil(delims string) (int64, error) {
	start := s.pos
	for s.pos < len(s.data) && strings.IndexByte(delims, s.data[s.pos]) < 0 {
		s.pos++
	}
	raw := string(s.data[start:s.pos])
	if raw == "" {
		return 0, fmt.Errorf("configagent: expected digits at offset %d", start)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("configagent: invalid integer %q: %w", raw, err)
	}
	return v, nil
}

// readReliability parses and range-checks (but otherwise discards) the
// legacy reliability field.
func (s *scanner) readReliability() error {
	v, err := s.readDigitsUntil(";:")
	if err != nil {
		return fmt.Errorf("configagent: reliability: %w", err)
	}
	if v < reliabilityMin || v > reliabilityMax {
		return fmt.Errorf("configagent: reliability %d out of range [%d,%d]", v, reliabilityMin, reliabilityMax)
	}
	return nil
}

// readEIDList parses a "(eid), (eid), ... ]" sequence; the caller has
// already consumed the opening '['.
func (s *scanner) readEIDList() ([]eid.EID, error) {
	var out []eid.EID
	for {
		if s.tryConsume(']') {
			return out, nil
		}
		if err := s.expect('('); err != nil {
			return nil, err
		}
		raw, err := s.readUntil(')')
		if err != nil {
			return nil, err
		}
		e, err := eid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("configagent: endpoint eid: %w", err)
		}
		out = append(out, e)
		if s.tryConsume(',') {
			continue
		}
		if err := s.expect(']'); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// readContactList parses a "{from,to,bps[,[eids]]}, ... ]" sequence; the
// caller has already consumed the opening '['.
func (s *scanner) readContactList() ([]ContactSpec, error) {
	var out []ContactSpec
	for {
		if s.tryConsume(']') {
			return out, nil
		}
		if err := s.expect('{'); err != nil {
			return nil, err
		}

		fromS, err := s.readDigitsUntil(",")
		if err != nil {
			return nil, fmt.Errorf("configagent: contact from_s: %w", err)
		}
		if err := s.expect(','); err != nil {
			return nil, err
		}
		toS, err := s.readDigitsUntil(",")
		if err != nil {
			return nil, fmt.Errorf("configagent: contact to_s: %w", err)
		}
		if err := s.expect(','); err != nil {
			return nil, err
		}
		if fromS < 0 || toS < 0 || fromS >= maxTimeSeconds || toS >= maxTimeSeconds {
			return nil, fmt.Errorf("configagent: contact time overflows after ms conversion")
		}

		bitrate, err := s.readDigitsUntil(",}")
		if err != nil {
			return nil, fmt.Errorf("configagent: contact bitrate: %w", err)
		}

		c := ContactSpec{FromMs: fromS * 1000, ToMs: toS * 1000, BitrateBps: bitrate}

		if s.tryConsume(',') {
			if err := s.expect('['); err != nil {
				return nil, err
			}
			endpoints, err := s.readEIDList()
			if err != nil {
				return nil, err
			}
			c.Endpoints = endpoints
		}
		if err := s.expect('}'); err != nil {
			return nil, err
		}
		out = append(out, c)

		if s.tryConsume(',') {
			continue
		}
		if err := s.expect(']'); err != nil {
			return nil, err
		}
		return out, nil
	}
}
