// Package blocktest builds serialized map blocks for tests.
package blocktest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/blockmapper/internal/block"
)

// Record describes a block to serialize.
type Record struct {
	Version      byte
	ContentWidth byte // defaults to 2
	ParamsWidth  byte // defaults to 2
	Names        []block.NodeName
	// Content returns the content id of node i; nil fills with id 0.
	Content func(i int) uint16
}

// Fill returns a Content func that sets every node to id.
func Fill(id uint16) func(int) uint16 {
	return func(int) uint16 { return id }
}

// Bytes serializes r.
func (r Record) Bytes() ([]byte, error) {
	cw, pw := r.ContentWidth, r.ParamsWidth
	if cw == 0 {
		cw = 2
	}
	if pw == 0 {
		pw = 2
	}
	mapData, err := r.mapData(cw, pw)
	if err != nil {
		return nil, err
	}
	if r.Version >= 29 {
		return r.v29(cw, pw, mapData)
	}
	return r.legacy(cw, pw, mapData)
}

// MustBytes serializes r or fails the test.
func MustBytes(tb testing.TB, r Record) []byte {
	tb.Helper()
	b, err := r.Bytes()
	if err != nil {
		tb.Fatalf("serialize block: %v", err)
	}
	return b
}

func (r Record) mapData(cw, pw byte) ([]byte, error) {
	size := (int(cw) + int(pw)) * block.NodeCount
	if size < 3*block.NodeCount {
		size = 3 * block.NodeCount
	}
	data := make([]byte, size)
	for i := 0; i < block.NodeCount; i++ {
		var id uint16
		if r.Content != nil {
			id = r.Content(i)
		}
		switch {
		case cw == 2:
			binary.BigEndian.PutUint16(data[2*i:], id)
		case id <= 0x7F:
			data[i] = byte(id)
		case id >= 0x800 && id <= 0xFFF:
			data[i] = byte(id >> 4)
			data[i+0x2000] = byte(id&0xF) << 4
		default:
			return nil, fmt.Errorf("content id %d not representable with one byte", id)
		}
	}
	return data[:(int(cw)+int(pw))*block.NodeCount], nil
}

func (r Record) nameTable() []byte {
	var buf bytes.Buffer
	buf.WriteByte(0) // mapping version
	writeU16(&buf, uint16(len(r.Names)))
	for _, n := range r.Names {
		writeU16(&buf, n.ID)
		writeU16(&buf, uint16(len(n.Name)))
		buf.WriteString(n.Name)
	}
	return buf.Bytes()
}

func (r Record) v29(cw, pw byte, mapData []byte) ([]byte, error) {
	var body bytes.Buffer
	body.WriteByte(0)                          // flags
	body.Write([]byte{0xFF, 0xFF})             // lighting_complete
	body.Write([]byte{0x00, 0x00, 0x01, 0x00}) // timestamp
	body.Write(r.nameTable())
	body.WriteByte(cw)
	body.WriteByte(pw)
	body.Write(mapData)
	body.Write([]byte{0, 0, 0}) // node metadata version and count, trailing data

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(body.Bytes(), []byte{r.Version}), nil
}

func (r Record) legacy(cw, pw byte, mapData []byte) ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte(r.Version)
	out.WriteByte(0) // flags
	if r.Version >= 27 {
		out.Write([]byte{0xFF, 0xFF}) // lighting_complete
	}
	out.WriteByte(cw)
	out.WriteByte(pw)
	if err := writeZlib(&out, mapData); err != nil {
		return nil, err
	}
	if err := writeZlib(&out, []byte{0, 0, 0}); err != nil { // node metadata
		return nil, err
	}

	switch r.Version {
	case 23:
		out.WriteByte(0)
	case 24:
		out.WriteByte(1) // timer version
		writeU16(&out, 2)
		out.Write(make([]byte, 20))
	}

	out.WriteByte(0) // static object version
	writeU16(&out, 2)
	for i := 0; i < 2; i++ {
		out.Write(make([]byte, 13))
		payload := []byte("obj")
		writeU16(&out, uint16(len(payload)))
		out.Write(payload)
	}
	out.Write([]byte{0, 0, 0, 42}) // timestamp

	out.Write(r.nameTable())
	out.Write([]byte{10, 2, 0}) // node timers in later versions, ignored
	return out.Bytes(), nil
}

func writeZlib(buf *bytes.Buffer, payload []byte) error {
	w := zlib.NewWriter(buf)
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.Close()
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
