package emailsvc

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// DummyService records sent messages for assertions and can be forced to fail.
// Tests only.
type DummyService struct {
	mutex        sync.Mutex
	SentMessages []core.EmailMessage
	FailNext     bool
}

var _ core.EmailService = (*DummyService)(nil)

func NewDummyService() *DummyService {
	return &DummyService{}
}

func (svc *DummyService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		_ = svc.Send(msg)
	}
}

func (svc *DummyService) Send(msg *core.EmailMessage) error {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	if svc.FailNext {
		return errors.New("email delivery failed")
	}
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	svc.SentMessages = append(svc.SentMessages, *msg)
	return nil
}

// Reset clears recorded messages and the failure flag.
func (svc *DummyService) Reset() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.SentMessages = nil
	svc.FailNext = false
}

// LastMessage returns the most recently sent message, if any.
func (svc *DummyService) LastMessage() (core.EmailMessage, bool) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	if len(svc.SentMessages) == 0 {
		return core.EmailMessage{}, false
	}
	return svc.SentMessages[len(svc.SentMessages)-1], true
}
