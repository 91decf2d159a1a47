package codec

import "fmt"

// ParseFramed drives a single already-framed bundle buffer (as produced by
// a CLA's own packet framing, internal/cla.ParseResult.RawBundle) through
// the version-dispatched streaming Codec until it reports Done or Error.
//
// The CLA layer already delimits one bundle's wire bytes before handing
// them here, so there is no further transport-level chunking to do; this
// loop exists because a Codec is still free to ask for the buffer in
// multiple Parse calls (e.g. to apply per-block validation incrementally)
// rather than requiring the whole thing in one call.
func (r *Registry) ParseFramed(raw []byte, send SendBundleFunc) error {
	if len(raw) == 0 {
		return ErrUnknownVersion
	}

	c, err := r.NewForFirstByte(raw[0])
	if err != nil {
		return err
	}
	c.Reset()

	offset := 0
	for {
		result, err := c.Parse(raw[offset:], send)
		if err != nil {
			return err
		}
		switch result.Status {
		case Error:
			return fmt.Errorf("codec: malformed bundle at offset %d", offset)
		case Done:
			return nil
		}
		if result.BytesConsumed <= 0 {
			return fmt.Errorf("codec: parser made no progress at offset %d", offset)
		}
		offset += result.BytesConsumed
		if offset >= len(raw) {
			return fmt.Errorf("codec: input exhausted before bundle completed")
		}
	}
}
