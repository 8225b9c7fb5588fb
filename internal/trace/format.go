package trace

import "fmt"

// Tag is the leading byte of a trace record.
type Tag byte

const (
	TagActorCreation     Tag = 1
	TagPromiseCreation   Tag = 2
	TagPromiseResolution Tag = 3
	TagPromiseChained    Tag = 4
	TagMailbox           Tag = 5
	TagThread            Tag = 6
	TagMailboxContd      Tag = 7
	TagActivityOrigin    Tag = 8
	TagPromiseMessage    Tag = 9
	TagProcessCreation   Tag = 10
	TagProcessCompletion Tag = 11
	TagTaskSpawn         Tag = 12
	TagTaskJoin          Tag = 13
)

// Flag bits of a message send tag.
const (
	FlagSend       Tag = 0x80
	FlagPrefix     Tag = 0x40
	FlagTimestamps Tag = 0x20
	FlagParams     Tag = 0x10
)

// Record sizes in bytes, including the tag byte. SizePromiseResolution is
// the size of the fixed part; the trailing parameter adds 1..9 bytes.
const (
	SizeActorCreation     = 19
	SizePromiseCreation   = 17
	SizePromiseResolution = 17
	SizePromiseChained    = 17
	SizeMailbox           = 21
	SizeThread            = 17
	SizeMailboxContd      = 25
	SizeActivityOrigin    = 9
	SizePromiseMessage    = 7
	SizeProcessCreation   = 19
	SizeProcessCompletion = 9
	SizeTaskSpawn         = 19
	SizeTaskJoin          = 11

	// MaxPromiseResolution bounds a resolution record with its parameter.
	MaxPromiseResolution = SizePromiseResolution + maxParamLength

	// SizeCreationWithOrigin is what a creation record consumes in total.
	SizeCreationWithOrigin = SizeActorCreation + SizeActivityOrigin
)

// Message send layout after the optional fields.
const (
	sizePrefix     = 8
	sizeTimestamps = 16
	sizeSendTail   = 8 + 10 // sender id, reserved (causal message id + selector)
)

var fixedSizes = map[Tag]int{
	TagActorCreation:     SizeActorCreation,
	TagPromiseCreation:   SizePromiseCreation,
	TagPromiseChained:    SizePromiseChained,
	TagMailbox:           SizeMailbox,
	TagThread:            SizeThread,
	TagMailboxContd:      SizeMailboxContd,
	TagActivityOrigin:    SizeActivityOrigin,
	TagPromiseMessage:    SizePromiseMessage,
	TagProcessCreation:   SizeProcessCreation,
	TagProcessCompletion: SizeProcessCompletion,
	TagTaskSpawn:         SizeTaskSpawn,
	TagTaskJoin:          SizeTaskJoin,
}

var tagNames = map[Tag]string{
	TagActorCreation:     "ActorCreation",
	TagPromiseCreation:   "PromiseCreation",
	TagPromiseResolution: "PromiseResolution",
	TagPromiseChained:    "PromiseChained",
	TagMailbox:           "Mailbox",
	TagThread:            "Thread",
	TagMailboxContd:      "MailboxContd",
	TagActivityOrigin:    "ActivityOrigin",
	TagPromiseMessage:    "PromiseMessage",
	TagProcessCreation:   "ProcessCreation",
	TagProcessCompletion: "ProcessCompletion",
	TagTaskSpawn:         "TaskSpawn",
	TagTaskJoin:          "TaskJoin",
}

// IsSend reports whether the tag denotes a message send.
func (t Tag) IsSend() bool {
	return t&FlagSend != 0
}

// IsCreation reports whether the tag denotes an entity creation record.
func (t Tag) IsCreation() bool {
	return t == TagActorCreation || t == TagProcessCreation || t == TagTaskSpawn
}

// Known reports whether the tag is one of the enumerated lifecycle kinds.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// Has reports whether all bits of flag are set on a send tag.
func (t Tag) Has(flag Tag) bool {
	return t.IsSend() && t&flag == flag
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	if t.IsSend() {
		return fmt.Sprintf("Send(0x%02x)", byte(t))
	}
	return fmt.Sprintf("Unknown(%d)", byte(t))
}

// RecordLength returns the length of the record starting at chunk[off]
// without decoding it. It fails with a *FormatError when the record does
// not fit into the chunk.
func RecordLength(chunk []byte, off int) (int, error) {
	if off >= len(chunk) {
		return 0, truncated(chunk, off, 0, 1)
	}
	tag := Tag(chunk[off])

	switch {
	case tag.IsSend():
		return sendLength(chunk, off)

	case tag.IsCreation():
		if err := fits(chunk, off, SizeCreationWithOrigin); err != nil {
			return 0, err
		}
		return SizeCreationWithOrigin, nil

	case tag == TagPromiseResolution:
		if err := fits(chunk, off, SizePromiseResolution+1); err != nil {
			return 0, err
		}
		n := SizePromiseResolution + ParamLength(chunk[off+SizePromiseResolution])
		if err := fits(chunk, off, n); err != nil {
			return 0, err
		}
		return n, nil
	}

	if size, ok := fixedSizes[tag]; ok {
		if err := fits(chunk, off, size); err != nil {
			return 0, err
		}
		return size, nil
	}
	return 1, nil
}

// sendLength sizes a message send record by walking its optional fields.
func sendLength(chunk []byte, off int) (int, error) {
	tag := Tag(chunk[off])
	i := off + 1

	if tag.Has(FlagPrefix) {
		i += sizePrefix
	}
	if tag.Has(FlagTimestamps) {
		i += sizeTimestamps
	}
	if tag.Has(FlagParams) {
		if err := fits(chunk, off, i-off+1); err != nil {
			return 0, err
		}
		count := int(chunk[i])
		i++
		for k := 0; k < count; k++ {
			if err := fits(chunk, off, i-off+1); err != nil {
				return 0, err
			}
			i += ParamLength(chunk[i])
		}
	}
	i += sizeSendTail

	if err := fits(chunk, off, i-off); err != nil {
		return 0, err
	}
	return i - off, nil
}

// Split cuts a buffer of whole records into one slice per record. The
// returned slices alias buf.
func Split(buf []byte) ([][]byte, error) {
	var records [][]byte
	for off := 0; off < len(buf); {
		n, err := RecordLength(buf, off)
		if err != nil {
			return records, err
		}
		records = append(records, buf[off:off+n])
		off += n
	}
	return records, nil
}

// fits checks that size bytes starting at off are inside chunk.
func fits(chunk []byte, off, size int) error {
	if off+size > len(chunk) {
		return truncated(chunk, off, size, off+size-len(chunk))
	}
	return nil
}
