package db

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
)

// Export writes a session and its records as JSON lines: one header object
// for the session, then one object per record.
func Export(w io.Writer, session *Session, records []Record) error {
	bw := bufio.NewWriter(w)
	var a fastjson.Arena
	var buf []byte

	head := a.NewObject()
	head.Set("session", a.NewString(session.ID))
	head.Set("source", a.NewString(session.Source))
	head.Set("started_at", a.NewString(session.StartedAt.UTC().Format(time.RFC3339Nano)))
	if session.EndedAt != nil {
		head.Set("ended_at", a.NewString(session.EndedAt.UTC().Format(time.RFC3339Nano)))
	} else {
		head.Set("ended_at", a.NewNull())
	}
	head.Set("records", a.NewNumberInt(len(records)))
	buf = append(head.MarshalTo(buf[:0]), '\n')
	if _, err := bw.Write(buf); err != nil {
		return err
	}

	for i := range records {
		a.Reset()
		r := &records[i]
		o := a.NewObject()
		o.Set("hash", a.NewString(strconv.FormatUint(r.Hash, 16)))
		o.Set("severity", a.NewString(r.Severity.String()))
		o.Set("mode", a.NewNumberInt(int(r.Mode)))
		o.Set("condition", a.NewString(r.Condition))
		o.Set("file", a.NewString(r.File))
		o.Set("line", a.NewNumberInt(r.Line))
		o.Set("code", a.NewString(r.Code))
		o.Set("count", a.NewNumberInt(r.Count))
		o.Set("first_seen", a.NewString(r.FirstSeen.UTC().Format(time.RFC3339Nano)))
		o.Set("last_seen", a.NewString(r.LastSeen.UTC().Format(time.RFC3339Nano)))
		buf = append(o.MarshalTo(buf[:0]), '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportWriter wraps w in a zstd encoder when path ends in ".zst". Closing
// the returned writer flushes the encoder but does not close w.
func ExportWriter(w io.Writer, path string) (io.WriteCloser, error) {
	if !strings.HasSuffix(path, ".zst") {
		return nopCloser{w}, nil
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return enc, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
