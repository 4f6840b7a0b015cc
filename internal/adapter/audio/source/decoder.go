package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// decoder produces 16-bit little-endian interleaved PCM.
type decoder interface {
	io.Reader
	Rewind() error
	SampleRate() int
	Channels() int
	Length() int64 // total PCM bytes, or -1 if unknown
}

// --- MP3 decoder ---

// go-mp3 always decodes to 16-bit stereo.
type mp3Decoder struct {
	dec *mp3.Decoder
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) SampleRate() int            { return d.dec.SampleRate() }
func (d *mp3Decoder) Channels() int              { return 2 }
func (d *mp3Decoder) Length() int64              { return d.dec.Length() }

func (d *mp3Decoder) Rewind() error {
	_, err := d.dec.Seek(0, io.SeekStart)
	return err
}

// --- WAV decoder ---

type wavDecoder struct {
	file       *os.File
	dec        *wav.Decoder
	buf        *audio.IntBuffer
	pending    []byte
	sampleRate int
	channels   int
	bitDepth   int
	length     int64
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if channels <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("invalid WAV format: %d channels, %d bits", channels, bitDepth)
	}

	srcFrame := int64(channels * bitDepth / 8)
	frames := dec.PCMLen() / srcFrame

	return &wavDecoder{
		file: f,
		dec:  dec,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
			Data:           make([]int, 2048*channels),
			SourceBitDepth: bitDepth,
		},
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		length:     frames * int64(channels) * 2,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		n, err := d.dec.PCMBuffer(d.buf)
		if n == 0 {
			if err != nil && err != io.EOF {
				return 0, err
			}
			return 0, io.EOF
		}

		out := make([]byte, n*2)
		for i, v := range d.buf.Data[:n] {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(to16(v, d.bitDepth)))
		}
		d.pending = out
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// to16 scales a decoded sample to signed 16 bits. 8-bit WAV is unsigned.
func to16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		v = (v - 128) << 8
	case bitDepth > 16:
		v >>= bitDepth - 16
	}
	return int16(max(-32768, min(32767, v)))
}

func (d *wavDecoder) Rewind() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	dec := wav.NewDecoder(d.file)
	if err := dec.FwdToPCM(); err != nil {
		return err
	}
	d.dec = dec
	d.pending = nil
	return nil
}

func (d *wavDecoder) SampleRate() int { return d.sampleRate }
func (d *wavDecoder) Channels() int   { return d.channels }
func (d *wavDecoder) Length() int64   { return d.length }
