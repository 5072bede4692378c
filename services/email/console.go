package emailsvc

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

type consoleService struct {
	conf          *core.Config
	disableOutput bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{conf: conf}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	svc.send(*msg)
	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()
}

func (svc *consoleService) send(msg core.EmailMessage) {
	if svc.disableOutput {
		return
	}
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.conf.DefaultFromEmail.String())
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", "["+svc.conf.AppName+"] "+msg.Subject)
	toJoin := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		toJoin = append(toJoin, a.String())
	}
	_, _ = fmt.Fprintf(body, "To: %s\r\n\r\n", strings.Join(toJoin, ", "))
	_, _ = fmt.Fprintf(body, "%s\r\n", msg.Body)
	log.Println(body.String())
}

// consoleServiceMock records messages synchronously without output; tests
// inspect SentMessages.
type consoleServiceMock struct {
	consoleService
}

func NewConsoleServiceMock(conf *core.Config) *consoleServiceMock {
	return &consoleServiceMock{consoleService: consoleService{conf: conf, disableOutput: true}}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}

func (svc *consoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}
