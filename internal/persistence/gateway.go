package persistence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/talgya/hexfleet/internal/game"
	"github.com/talgya/hexfleet/internal/intel"
)

// SaveKey is the fixed key the game is saved under.
const SaveKey = "hexfleet/save"

// Record codecs.
const (
	CodecLZ4  = "lz4"
	CodecJSON = "json"
)

// lz4FrameMagic is the little-endian frame magic number 0x184D2204.
var lz4FrameMagic = []byte{0x04, 0x22, 0x4D, 0x18}

// Load failures.
var (
	ErrNoSave             = errors.New("no save found")
	ErrChecksum           = errors.New("save checksum mismatch")
	ErrMalformed          = errors.New("save is not a valid document")
	ErrUnsupportedVersion = errors.New("unsupported save version")
	ErrMissingField       = errors.New("save is missing a required field")
)

// requiredFields must be present at the top level of every save.
var requiredFields = []string{"galaxy", "fleets", "resources"}

// Encode serializes a state into a compressed, checksummed record.
func Encode(st *game.State) (Record, error) {
	doc, err := json.Marshal(st)
	if err != nil {
		return Record{}, fmt.Errorf("marshal state: %w", err)
	}
	packed, err := compress(doc)
	if err != nil {
		return Record{}, fmt.Errorf("compress: %w", err)
	}
	return Record{
		Data:     packed,
		Codec:    CodecLZ4,
		Checksum: checksum(packed),
		SavedAt:  time.Now().UnixMilli(),
	}, nil
}

// Save writes st to store under key and returns the stored size in bytes.
func Save(store Store, key string, st *game.State) (int, error) {
	rec, err := Encode(st)
	if err != nil {
		return 0, err
	}
	if err := store.Put(key, rec); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	slog.Info("game saved", "key", key, "turn", st.Turn, "size", humanize.Bytes(uint64(len(rec.Data))))
	return len(rec.Data), nil
}

// Load reads and validates the save under key. It never touches any live
// state: the caller swaps the returned state in only on success.
func Load(store Store, key string) (*game.State, error) {
	rec, err := store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoSave
	}
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	st, err := Decode(rec)
	if err != nil {
		return nil, err
	}
	slog.Info("game loaded", "key", key, "turn", st.Turn, "size", humanize.Bytes(uint64(len(rec.Data))))
	return st, nil
}

// Decode turns a record back into a validated state, migrating older
// schema versions forward.
func Decode(rec Record) (*game.State, error) {
	if rec.Checksum != "" && rec.Checksum != checksum(rec.Data) {
		return nil, ErrChecksum
	}

	raw, err := unpack(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	if err := migrate(doc); err != nil {
		return nil, err
	}
	for _, field := range requiredFields {
		if v, ok := doc[field]; !ok || v == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}
	backfill(doc)

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var st game.State
	if err := json.Unmarshal(normalized, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if st.IntelLog == nil {
		st.IntelLog = intel.NewLog(intel.DefaultCapacity)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &st, nil
}

// backfill supplies fields that older or hand-edited saves may omit.
func backfill(doc map[string]any) {
	res, ok := doc["resources"].(map[string]any)
	if !ok {
		return
	}
	if _, ok := res["tiered_metals"].(map[string]any); !ok {
		res["tiered_metals"] = map[string]any{"t1": 0, "t2": 0, "t3": 0}
	}
}

func unpack(rec Record) ([]byte, error) {
	switch rec.Codec {
	case CodecLZ4:
		return decompress(rec.Data)
	case CodecJSON:
		return rec.Data, nil
	case "":
		if bytes.HasPrefix(rec.Data, lz4FrameMagic) {
			return decompress(rec.Data)
		}
		return rec.Data, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", rec.Codec)
	}
}

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	return io.ReadAll(zr)
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
