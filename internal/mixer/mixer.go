// Package mixer implements the track manager / mix bus of spec.md §4.7:
// an ordered, positionally-addressed set of tracks summed into a single
// mix, with a post-sum master gain and a pre-master-gain analyzer tap.
package mixer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shapedsignal/noiseforge/internal/errs"
	"github.com/shapedsignal/noiseforge/internal/track"
)

// TapFunc receives the pre-master-gain mix buffer for each processed
// block. It must not retain the slice past the call (the mixer reuses its
// backing array).
type TapFunc func(mix []float32)

// mixState is the immutable snapshot the real-time Process path reads via
// a single atomic pointer load, the same lock-free handoff
// internal/stft.Processor uses to publish its composite mask
// (SetMask/currentMask): the control thread builds a new mixState and
// swaps the pointer; the audio thread never locks to read it.
type mixState struct {
	tracks     []*track.Track
	masterGain float64
	tap        TapFunc
}

// MixBus owns an ordered set of tracks, identified by positional id, and
// sums their contributions into a single mix, then a master gain stage.
// The analyzer tap observes the mix *before* master gain is applied
// (spec.md §4.7: "an explicit design decision so that visualization is
// invariant under the user's playback-volume control").
type MixBus struct {
	state atomic.Pointer[mixState]

	// ctrlMu serializes control-thread mutations (Add/Remove/StartAll/
	// StopAll/SetMasterGain/SetAnalyzerTap) against each other so two
	// concurrent writers can't race on a read-modify-store of state. It
	// is never acquired by Process, Track, MasterGain, or Snapshots, so
	// it can never block the audio thread (spec.md §5: the real-time
	// thread "MUST NOT allocate, block, lock, or perform I/O").
	ctrlMu sync.Mutex

	sampleRate float64
	nextID     int
	playing    bool

	mixBuf   []float32
	trackBuf []float32
}

// maxHostBlockSamples is the largest host callback block size the audio
// host callback contract allows (spec.md §6: "contract: 64, 128, or
// 256"). mixBuf/trackBuf are sized to this at construction so Process
// never allocates, matching internal/track's same pre-sizing.
const maxHostBlockSamples = 256

// New builds an empty mix bus at the given sample rate with unity master
// gain.
func New(sampleRate float64) *MixBus {
	m := &MixBus{
		sampleRate: sampleRate,
		mixBuf:     make([]float32, maxHostBlockSamples),
		trackBuf:   make([]float32, maxHostBlockSamples),
	}
	m.state.Store(&mixState{masterGain: 1.0})
	return m
}

// SetAnalyzerTap installs (or clears, with nil) the function invoked with
// the pre-master-gain mix on every Process call.
func (m *MixBus) SetAnalyzerTap(tap TapFunc) {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	cur := m.state.Load()
	m.state.Store(&mixState{tracks: cur.tracks, masterGain: cur.masterGain, tap: tap})
}

// Add creates a new track and returns its id. If the bus is currently
// playing, the new track is immediately started, soft-joining the
// running mix (spec.md §4.7).
func (m *MixBus) Add() (int, error) {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()

	id := m.nextID
	m.nextID++
	tr, err := track.New(id, m.sampleRate, seedFor(id))
	if err != nil {
		return 0, err
	}

	cur := m.state.Load()
	tracks := append(append([]*track.Track(nil), cur.tracks...), tr)
	m.state.Store(&mixState{tracks: tracks, masterGain: cur.masterGain, tap: cur.tap})

	if m.playing {
		tr.Start()
	}
	return id, nil
}

// Remove stops and destroys the track with the given id.
func (m *MixBus) Remove(id int) error {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()

	cur := m.state.Load()
	idx, err := indexOf(cur.tracks, id)
	if err != nil {
		return err
	}
	cur.tracks[idx].Stop()

	tracks := make([]*track.Track, 0, len(cur.tracks)-1)
	tracks = append(tracks, cur.tracks[:idx]...)
	tracks = append(tracks, cur.tracks[idx+1:]...)
	m.state.Store(&mixState{tracks: tracks, masterGain: cur.masterGain, tap: cur.tap})
	return nil
}

// Track returns the track with the given id, for filter/gain/mute
// management. Returns ErrBadIndex if no such track exists.
func (m *MixBus) Track(id int) (*track.Track, error) {
	cur := m.state.Load()
	idx, err := indexOf(cur.tracks, id)
	if err != nil {
		return nil, err
	}
	return cur.tracks[idx], nil
}

// StartAll starts every track and marks the bus playing, so subsequently
// added tracks are soft-joined automatically.
func (m *MixBus) StartAll() {
	m.ctrlMu.Lock()
	m.playing = true
	tracks := m.state.Load().tracks
	m.ctrlMu.Unlock()

	for _, tr := range tracks {
		tr.Start()
	}
}

// StopAll stops every track and marks the bus not playing.
func (m *MixBus) StopAll() {
	m.ctrlMu.Lock()
	m.playing = false
	tracks := m.state.Load().tracks
	m.ctrlMu.Unlock()

	for _, tr := range tracks {
		tr.Stop()
	}
}

// SetMasterGain clamps and sets the post-sum master gain.
func (m *MixBus) SetMasterGain(linear float64) {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	if linear < 0 {
		linear = 0
	}
	if linear > 2 {
		linear = 2
	}
	cur := m.state.Load()
	m.state.Store(&mixState{tracks: cur.tracks, masterGain: linear, tap: cur.tap})
}

// MasterGain reports the current master gain.
func (m *MixBus) MasterGain() float64 {
	return m.state.Load().masterGain
}

// Process sums every track's contribution into output: fixed order by
// ascending track id (spec.md §4.7 implies deterministic summation order
// via positional ids), invokes the analyzer tap on the pre-gain mix, then
// applies master gain in place. A single atomic load publishes the
// current track set, master gain, and tap; Process never locks.
func (m *MixBus) Process(output []float32) {
	st := m.state.Load()

	n := len(output)
	// mixBuf/trackBuf are pre-sized to maxHostBlockSamples in New; the
	// host callback contract (spec.md §6) bounds n to 64/128/256, so
	// this never grows the backing arrays on the audio thread.
	mix := m.mixBuf[:n]
	tbuf := m.trackBuf[:n]
	for i := range mix {
		mix[i] = 0
	}

	for _, tr := range st.tracks {
		tr.Process(tbuf)
		for i := range mix {
			mix[i] += tbuf[i]
		}
	}

	if st.tap != nil {
		st.tap(mix)
	}

	gain := float32(st.masterGain)
	for i := range output {
		output[i] = mix[i] * gain
	}
}

// Snapshots returns every track's render-relevant state, in ascending id
// order, for the offline renderer (spec.md §4.9).
func (m *MixBus) Snapshots() []track.Snapshot {
	st := m.state.Load()
	out := make([]track.Snapshot, len(st.tracks))
	for i, tr := range st.tracks {
		out[i] = tr.Snapshot()
	}
	return out
}

// SampleRate reports the bus's fixed sample rate.
func (m *MixBus) SampleRate() float64 { return m.sampleRate }

func indexOf(tracks []*track.Track, id int) (int, error) {
	for i, tr := range tracks {
		if tr.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: track id %d", errs.ErrBadIndex, id)
}

// seedFor derives a distinct default LCG seed per track id so tracks
// don't share an identical noise stream out of the box. The seed is fixed
// when the track is built; Track exposes no accessor for reseeding its
// noise source.
func seedFor(id int) int64 {
	return int64(id)*2654435761 + 1
}
