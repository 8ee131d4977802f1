package registry

import (
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// emitters 注册表事件发射器，未配置事件总线时全部为 nil
type emitters struct {
	added         interfaces.Emitter
	modified      interfaces.Emitter
	authenticated interfaces.Emitter
	authFailed    interfaces.Emitter
	didChanged    interfaces.Emitter
	status        interfaces.Emitter
}

func newEmitters(bus interfaces.EventBus) (*emitters, error) {
	e := &emitters{}
	if bus == nil {
		return e, nil
	}
	for _, b := range []struct {
		dst *interfaces.Emitter
		typ interface{}
	}{
		{&e.added, new(types.EvtPeerAdded)},
		{&e.modified, new(types.EvtPeerModified)},
		{&e.authenticated, new(types.EvtPeerAuthenticated)},
		{&e.authFailed, new(types.EvtPeerAuthFailed)},
		{&e.didChanged, new(types.EvtPeerDIDChanged)},
		{&e.status, new(types.EvtPeerStatusChanged)},
	} {
		em, err := bus.Emitter(b.typ)
		if err != nil {
			_ = e.close()
			return nil, err
		}
		*b.dst = em
	}
	return e, nil
}

func (e *emitters) close() error {
	var err error
	for _, em := range []interfaces.Emitter{e.added, e.modified, e.authenticated, e.authFailed, e.didChanged, e.status} {
		if em != nil {
			err = multierr.Append(err, em.Close())
		}
	}
	return err
}

func emit(em interfaces.Emitter, evt interface{}) {
	if em == nil {
		return
	}
	if err := em.Emit(evt); err != nil {
		logger.Debug("事件发送失败", "error", err)
	}
}

func (e *emitters) emitAdded(ref types.PeerRef, validated bool, at time.Time) {
	emit(e.added, types.EvtPeerAdded{PeerRef: ref, Validated: validated, Timestamp: at})
}

func (e *emitters) emitModified(ref types.PeerRef, at time.Time) {
	emit(e.modified, types.EvtPeerModified{PeerRef: ref, Timestamp: at})
}

func (e *emitters) emitAuthenticated(ref types.PeerRef, local bool, at time.Time) {
	emit(e.authenticated, types.EvtPeerAuthenticated{PeerRef: ref, Local: local, Timestamp: at})
}

func (e *emitters) emitAuthFailed(ref types.PeerRef, reason string, count int, at time.Time) {
	emit(e.authFailed, types.EvtPeerAuthFailed{PeerRef: ref, Reason: reason, FailureCount: count, Timestamp: at})
}

func (e *emitters) emitDIDChanged(ref types.PeerRef, old string, at time.Time) {
	emit(e.didChanged, types.EvtPeerDIDChanged{PeerRef: ref, OldDID: old, Timestamp: at})
}

func (e *emitters) emitStatus(ref types.PeerRef, sample types.PingSample, status string, at time.Time) {
	emit(e.status, types.EvtPeerStatusChanged{PeerRef: ref, Sample: sample, UserStatus: status, Timestamp: at})
}
