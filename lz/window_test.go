package lz

import (
	"bytes"
	"testing"
)

// collectPasses feeds data through w, recording every pass.
func collectPasses(w *Window, data []byte, chunk int) []Pass {
	var passes []Pass
	take := func() {
		p, ok := w.Take()
		if !ok {
			panic("pass still in flight")
		}
		cp := p
		cp.Data = append([]byte(nil), p.Data...)
		passes = append(passes, cp)
		w.Release(p)
	}
	for len(data) > 0 {
		n := chunk
		if n > len(data) {
			n = len(data)
		}
		k := w.Write(data[:n])
		data = data[k:]
		if w.Full() {
			take()
		}
	}
	if w.Pending() > 0 {
		take()
	}
	return passes
}

func TestWindowPasses(t *testing.T) {
	data := textData(1000000, 11)
	for _, dual := range []bool{false, true} {
		for _, chunk := range []int{1, 777, 1 << 20} {
			w := NewWindow(1<<18, 1000, 0, dual)
			passes := collectPasses(w, data, chunk)

			var got []byte
			var pos int64
			for i, p := range passes {
				if p.Reset != (i == 0) {
					t.Fatalf("dual=%v chunk=%d pass %d: reset=%v", dual, chunk, i, p.Reset)
				}
				if p.DictPos != pos {
					t.Fatalf("pass %d: dictPos %d, want %d", i, p.DictPos, pos)
				}
				if i > 0 && p.Start != 1000 {
					t.Fatalf("pass %d: history %d", i, p.Start)
				}
				if !bytes.Equal(p.Data[:p.Start], got[len(got)-p.Start:]) {
					t.Fatalf("pass %d: history does not match the preceding data", i)
				}
				got = append(got, p.Data[p.Start:]...)
				pos += int64(len(p.Data) - p.Start)
				if len(p.Data) > w.Size() {
					t.Fatalf("pass %d holds %d bytes", i, len(p.Data))
				}
			}
			if !bytes.Equal(got, data) {
				t.Fatalf("dual=%v chunk=%d: passes do not reassemble the input", dual, chunk)
			}
		}
	}
}

func TestWindowResetInterval(t *testing.T) {
	data := textData(700000, 12)
	w := NewWindow(1<<17, 500, 3<<17, true)
	passes := collectPasses(w, data, 5000)
	var since int64
	for i, p := range passes {
		if p.Reset {
			if p.Start != 0 || p.DictPos != 0 {
				t.Fatalf("pass %d: reset with history %d, dictPos %d", i, p.Start, p.DictPos)
			}
			since = 0
		} else if p.DictPos != since {
			t.Fatalf("pass %d: dictPos %d, want %d", i, p.DictPos, since)
		}
		since += int64(len(p.Data) - p.Start)
		if since > 3<<17 {
			t.Fatalf("pass %d crosses a reset boundary", i)
		}
	}
	resets := 0
	for _, p := range passes {
		if p.Reset {
			resets++
		}
	}
	if want := (len(data) + 3<<17 - 1) / (3 << 17); resets != want {
		t.Fatalf("%d resets, want %d", resets, want)
	}
}

func TestWindowSingleBufferBlocksWhileInFlight(t *testing.T) {
	w := NewWindow(1<<16, 100, 0, false)
	w.Write(make([]byte, 5000))
	p, ok := w.Take()
	if !ok {
		t.Fatal("Take failed")
	}
	if len(w.Writable()) != 0 {
		t.Fatal("writable while the only buffer is in flight")
	}
	if _, ok := w.Take(); ok {
		t.Fatal("second Take succeeded")
	}
	w.Release(p)
	if len(w.Writable()) == 0 {
		t.Fatal("not writable after release")
	}
	if w.Pending() != 0 || w.prefix != 100 {
		t.Fatalf("pending %d, history %d", w.Pending(), w.prefix)
	}
}

func TestWindowDualBufferAcceptsWhileInFlight(t *testing.T) {
	w := NewWindow(1<<16, 100, 0, true)
	w.Write(bytes.Repeat([]byte{1}, 5000))
	p, _ := w.Take()
	if n := w.Write(bytes.Repeat([]byte{2}, 3000)); n != 3000 {
		t.Fatalf("wrote %d bytes while a pass was in flight", n)
	}
	if _, ok := w.Take(); ok {
		t.Fatal("took the second buffer while the first is in flight")
	}
	w.Release(p)
	q, ok := w.Take()
	if !ok || q.Start != 100 || len(q.Data) != 3100 || q.Data[99] != 1 || q.Data[100] != 2 {
		t.Fatalf("second pass: ok=%v start=%d len=%d", ok, q.Start, len(q.Data))
	}
}

func TestWindowRequestResetQueues(t *testing.T) {
	w := NewWindow(1<<16, 100, 0, false)
	w.Write(make([]byte, 5000))
	p, _ := w.Take()
	w.RequestReset()
	w.Release(p)
	w.Write(make([]byte, 10))
	q, _ := w.Take()
	if !q.Reset || q.Start != 0 || q.DictPos != 0 {
		t.Fatalf("queued reset not applied: %+v", q)
	}
	w.Release(q)

	w.RequestReset()
	w.Write(make([]byte, 10))
	r, _ := w.Take()
	if !r.Reset || r.Start != 0 {
		t.Fatalf("immediate reset not applied: reset=%v start=%d", r.Reset, r.Start)
	}
}

func TestWindowCommitOverflowPanics(t *testing.T) {
	w := NewWindow(1<<16, 0, 0, false)
	defer func() {
		if recover() == nil {
			t.Fatal("no panic")
		}
	}()
	w.Commit(len(w.Writable()) + 1)
}
