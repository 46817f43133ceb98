package ktx2

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"slices"
	"strings"
)

// Well-known metadata keys.
const (
	KeyOrientation = "KTXorientation"
	KeyWriter      = "KTXwriter"
	KeySwizzle     = "KTXswizzle"
)

// KeyValueEntry is one key/value record. Value keeps its raw bytes, including any trailing NUL.
type KeyValueEntry struct {
	Key   string
	Value []byte
}

// String returns the value as text without trailing NULs.
func (e KeyValueEntry) String() string {
	return string(bytes.TrimRight(e.Value, "\x00"))
}

// ParseKeyValueEntries decodes the key/value region [offset, offset+length) in file order.
//
// Each record is a uint32 length followed by that many bytes, padded to 4 bytes.
// A zero length ends iteration; so does a record running past the region.
// Values alias data.
func ParseKeyValueEntries(data []byte, offset, length uint32) ([]KeyValueEntry, error) {
	if err := checkRegion(uint64(offset), uint64(length), len(data)); err != nil {
		return nil, containerError(ErrTruncatedIndex, "kvdByteOffset=%d kvdByteLength=%d, file is %d bytes", offset, length, len(data))
	}

	region := data[int(offset) : int(offset)+int(length)]
	var entries []KeyValueEntry
	for cursor := 0; cursor+4 <= len(region); {
		n := int(binary.LittleEndian.Uint32(region[cursor : cursor+4]))
		if n == 0 {
			break
		}
		cursor += 4
		if n > len(region)-cursor {
			Logger().Debug("ktx2: key/value record overruns region",
				slog.Int("recordOffset", int(offset)+cursor-4),
				slog.Int("keyAndValueByteLength", n),
				slog.Int("remaining", len(region)-cursor))
			break
		}

		record := region[cursor : cursor+n]
		key, value, _ := bytes.Cut(record, []byte{0})
		entries = append(entries, KeyValueEntry{Key: string(key), Value: value})

		cursor += n + (4-n%4)%4
	}

	return entries, nil
}

// ParseKVD decodes the key/value region into a map of text values.
// Later duplicates win.
func ParseKVD(data []byte, offset, length uint32) (map[string]string, error) {
	entries, err := ParseKeyValueEntries(data, offset, length)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.String()
	}

	return m, nil
}

// EncodeKVD builds a key/value region sorted by key. Text values get a trailing NUL.
func EncodeKVD(kv map[string]string) []byte {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	var word [4]byte
	for _, k := range keys {
		v := kv[k]
		if !strings.HasSuffix(v, "\x00") {
			v += "\x00"
		}
		n := len(k) + 1 + len(v)
		binary.LittleEndian.PutUint32(word[:], uint32(n))
		buf.Write(word[:])
		buf.WriteString(k)
		buf.WriteByte(0)
		buf.WriteString(v)
		buf.Write(make([]byte, (4-n%4)%4))
	}

	return buf.Bytes()
}
