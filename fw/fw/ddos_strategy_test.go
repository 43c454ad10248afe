package fw

import (
	"testing"
	"time"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
)

// recordingSink is a FaceSink test double that records every packet
// handed to it.
type recordingSink struct {
	interests []*defn.FwInterest
	data      []*defn.FwData
	nacks     []*defn.FwNack
}

func (s *recordingSink) SendInterest(i *defn.FwInterest) { s.interests = append(s.interests, i) }
func (s *recordingSink) SendData(d *defn.FwData)          { s.data = append(s.data, d) }
func (s *recordingSink) SendNack(n *defn.FwNack)          { s.nacks = append(s.nacks, n) }

func newTestDDoSStrategy(role core.RouterRole) (*DDoSStrategy, *Thread) {
	thread := NewThread(0)
	s := &DDoSStrategy{}
	DdosStrategyConfig = core.DdosConfig{
		TickInterval:       100 * time.Millisecond,
		DefaultRevertTicks: 3.0,
		RouterRole:         role,
		MaxBufferPerFace:   0,
	}
	s.Instantiate(thread)
	return s, thread
}

func addFace(thread *Thread, id uint64, isConsumer bool) *recordingSink {
	sink := &recordingSink{}
	thread.AddFace(&FaceMeta{ID: id, IsConsumerFace: isConsumer, Sink: sink})
	return sink
}

// P2: the store is empty until the first Nack, and non-empty immediately
// after.
func TestDDoSStrategyRecordStoreEmptyUntilFirstNack(t *testing.T) {
	s, thread := newTestDDoSStrategy(core.RoleConsumerGateway)
	f1 := addFace(thread, 1, true)

	assert.Equal(t, 0, s.store.Len())

	pit := thread.Pit
	interestX := &defn.FwInterest{NameV: mustName(t, "/a/x")}
	xEntry, _ := pit.FindOrInsert(interestX, time.Second)
	xEntry.InsertInRecord(interestX, 1, nil)

	nackPkt := &defn.Pkt{
		Name: mustName(t, "/a/x"),
		L3: defn.L3Pkt{Nack: &defn.FwNack{
			Interest:          interestX,
			Reason:            defn.NackReasonFakeInterest,
			PrefixLen:         1,
			Tolerance:         10,
			NackId:            1,
			FakeInterestNames: []enc.Name{mustName(t, "/a/x")},
		}},
	}
	s.AfterReceiveNack(nackPkt, xEntry, 2)

	assert.Equal(t, 1, s.store.Len())
	assert.Equal(t, 1, len(f1.nacks))
}

// S5 (first half): a face that overran its buffer stays marked bad, so
// after three ticks with no further Nacks its tolerance is halved rather
// than released.
func TestDDoSStrategyRevertTickHalvesBudgetForBadConsumer(t *testing.T) {
	s, _ := newTestDDoSStrategy(core.RoleConsumerGateway)
	addFace(s.Thread(), 1, true)

	rec, _ := s.store.GetOrCreate(mustName(t, "/a"))
	rec.FakeActive = true
	rec.FakeTolerance = 10
	rec.FakePushbackWeight[1] = 1.0
	rec.IsGoodConsumerFake[1] = false // flagged bad by a prior drain
	rec.RevertCounterFake = 1.0
	rec.LastNackTSFake = time.Now().Add(-time.Second).UnixNano()

	s.revertTick()

	assert.True(t, rec.FakeActive)
	assert.Equal(t, uint64(5), rec.FakeTolerance)
	assert.InDelta(t, 3.0, rec.RevertCounterFake, 1e-9)
	assert.Contains(t, rec.FakePushbackWeight, uint64(1))
}

// S5 (second half): once the face is good again, the weight is released,
// a DDOS_RESET_RATE Nack is emitted, the record erased, and the strategy
// returns to NORMAL with no timer armed (P2, P3).
func TestDDoSStrategyRevertTickReleasesGoodConsumer(t *testing.T) {
	s, _ := newTestDDoSStrategy(core.RoleConsumerGateway)
	sink := addFace(s.Thread(), 1, true)

	rec, _ := s.store.GetOrCreate(mustName(t, "/a"))
	rec.FakeActive = true
	rec.FakeTolerance = 5
	rec.FakePushbackWeight[1] = 1.0
	rec.IsGoodConsumerFake[1] = true
	rec.RevertCounterFake = 1.0
	rec.LastNackTSFake = time.Now().Add(-time.Second).UnixNano()

	s.revertTick()

	assert.False(t, rec.FakeActive)
	assert.Equal(t, 1, len(sink.nacks))
	assert.Equal(t, defn.NackReasonResetRate, sink.nacks[0].Reason)
	assert.Equal(t, 0, s.store.Len())
	assert.Equal(t, stateNormal, s.state)
	assert.Nil(t, s.revertHandle)
}

// P4: buffers are cleared on every consumer-gateway tick regardless of
// how much was drained.
func TestDDoSStrategyRevertTickClearsBuffers(t *testing.T) {
	s, thread := newTestDDoSStrategy(core.RoleConsumerGateway)
	addFace(thread, 1, true)

	rec, _ := s.store.GetOrCreate(mustName(t, "/a"))
	rec.FakeActive = true
	rec.FakeTolerance = 1
	rec.FakePushbackWeight[1] = 1.0
	rec.IsGoodConsumerFake[1] = true
	rec.RevertCounterFake = 100 // stays active, well past the grace window
	rec.LastNackTSFake = time.Now().Add(-time.Hour).UnixNano()
	for i := 0; i < 10; i++ {
		rec.PerFaceInterestBuffer[1] = append(rec.PerFaceInterestBuffer[1], BufferedInterest{
			Name:   mustName(t, "/a/z"),
			Params: &defn.FwInterest{NameV: mustName(t, "/a/z")},
		})
	}

	s.revertTick()

	assert.Equal(t, 0, len(rec.PerFaceInterestBuffer[1]))
}

// Interest Handler: an Interest under mitigation from a consumer face with
// a known weight is buffered, not forwarded immediately.
func TestAfterReceiveInterestBuffersAtConsumerGateway(t *testing.T) {
	s, thread := newTestDDoSStrategy(core.RoleConsumerGateway)
	addFace(thread, 1, true)

	rec, _ := s.store.GetOrCreate(mustName(t, "/a"))
	rec.FakePushbackWeight[1] = 1.0

	interest := &defn.FwInterest{NameV: mustName(t, "/a/z")}
	pitEntry, _ := thread.Pit.FindOrInsert(interest, time.Second)
	packet := &defn.Pkt{Name: interest.NameV, L3: defn.L3Pkt{Interest: interest}}

	s.AfterReceiveInterest(packet, pitEntry, 1, nil)

	assert.Equal(t, 1, len(rec.PerFaceInterestBuffer[1]))
}

// A retransmission (PIT entry already has an out-record) is ignored
// outright.
func TestAfterReceiveInterestIgnoresRetransmission(t *testing.T) {
	s, thread := newTestDDoSStrategy(core.RoleNormal)
	sink := addFace(thread, 9, false)

	interest := &defn.FwInterest{NameV: mustName(t, "/b/z")}
	pitEntry, _ := thread.Pit.FindOrInsert(interest, time.Second)
	pitEntry.InsertOutRecord(interest, 9)

	packet := &defn.Pkt{Name: interest.NameV, L3: defn.L3Pkt{Interest: interest}}
	s.AfterReceiveInterest(packet, pitEntry, 2, []*table.FibNextHopEntry{{Nexthop: 9, Cost: 1}})

	assert.Equal(t, 0, len(sink.interests))
}
