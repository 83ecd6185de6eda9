package services

import (
	"context"
	"sync"
	"time"
)

type fakeReply struct {
	text  string
	err   error
	block bool // wait for the call context to end
	delay time.Duration
}

// fakeModel replays replies in order, repeating the last one, and counts calls.
type fakeModel struct {
	mu        sync.Mutex
	replies   []fakeReply
	calls     int
	lastMedia []byte
	lastMIME  string
	rubric    string
}

func newFakeModel(replies ...fakeReply) *fakeModel {
	return &fakeModel{replies: replies}
}

func (f *fakeModel) Evaluate(ctx context.Context, media []byte, mimeType string, rubric string) (string, error) {
	f.mu.Lock()
	reply := f.replies[min(f.calls, len(f.replies)-1)]
	f.calls++
	f.lastMedia = media
	f.lastMIME = mimeType
	f.rubric = rubric
	f.mu.Unlock()

	if reply.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if reply.delay > 0 {
		select {
		case <-time.After(reply.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply.text, reply.err
}

func (f *fakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const validReply = `{
  "structure_score": 80,
  "presentation_score": 70,
  "clarity_score": 90,
  "weighted_total": 79,
  "comments": [
    "Lead with the problem, not yourself",
    "Cut the filler before your ask",
    "Look at the lens, not notes"
  ]
}`

// mp4Fixture is an ISO base media file header (ftyp box, isom brand).
func mp4Fixture(size int) []byte {
	header := []byte{
		0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
		'i', 's', 'o', 'm', 'i', 's', 'o', '2',
		'a', 'v', 'c', '1', 'm', 'p', '4', '1',
		0x00, 0x00, 0x00, 0x08, 'f', 'r', 'e', 'e',
	}
	return pad(header, size)
}

// webmFixture is an EBML header whose DocType is webm.
func webmFixture(size int) []byte {
	header := []byte{
		0x1A, 0x45, 0xDF, 0xA3, 0x9F,
		0x42, 0x86, 0x81, 0x01,
		0x42, 0xF7, 0x81, 0x01,
		0x42, 0xF2, 0x81, 0x04,
		0x42, 0xF3, 0x81, 0x08,
		0x42, 0x82, 0x84, 'w', 'e', 'b', 'm',
		0x42, 0x87, 0x81, 0x04,
		0x42, 0x85, 0x81, 0x02,
	}
	return pad(header, size)
}

func pad(header []byte, size int) []byte {
	if size < len(header) {
		size = len(header)
	}
	data := make([]byte, size)
	copy(data, header)
	for i := len(header); i < size; i++ {
		data[i] = byte(i % 251)
	}
	return data
}
