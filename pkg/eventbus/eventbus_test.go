package eventbus

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/weloop/lci-importer/pkg/logging"
)

type importedEvent struct {
	code string
}

func TestPublisher_Publish_NoSubscribers(t *testing.T) {
	type otherEvent struct {
		code string
	}
	logBuffer := bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(&logBuffer)
	log.SetLevel(logrus.WarnLevel)

	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *importedEvent) {
		t.Error("should not be called")
	})
	publisher.Publish(&otherEvent{code: "copper-x"})

	if output := logBuffer.String(); output == "" {
		t.Error("should have logged")
	} else if !strings.Contains(output, "eventbus.Publish: no matching subscribers") {
		t.Errorf("should have contained no matching subscribers but got: %q", output)
	}
}

func TestPublisher_Subscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	called := false
	var code string
	publisher.Subscribe(func(e *importedEvent) {
		called = true
		code = e.code
	})
	publisher.Publish(&importedEvent{code: "copper-x"})
	if !called {
		t.Error("should be called")
	}
	if code != "copper-x" {
		t.Errorf("expected: %v, got: %v", "copper-x", code)
	}
}

func TestPublisher_Clear(t *testing.T) {
	publisher := NewEventPublisher(logrus.New())
	publisher.Subscribe(func(e *importedEvent) {})
	if publisher.SubscribersCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", publisher.SubscribersCount())
	}
	publisher.Clear()
	if publisher.SubscribersCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", publisher.SubscribersCount())
	}
}
