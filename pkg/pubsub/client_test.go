package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/pawfinderz-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"topic id", topicResourceName("proj", "pf-workflow-events"), "projects/proj/topics/pf-workflow-events"},
		{"topic full name", topicResourceName("proj", "projects/other/topics/t"), "projects/other/topics/t"},
		{"subscription id", subscriptionResourceName("proj", " notif "), "projects/proj/subscriptions/notif"},
		{"subscription missing project", subscriptionResourceName("", "notif"), ""},
		{"empty name", topicResourceName("proj", ""), ""},
		{"wrong kind keeps prefixing", subscriptionResourceName("proj", "projects/p/topics/t"), "projects/proj/subscriptions/projects/p/topics/t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("got %q want %q", tc.got, tc.want)
			}
		})
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.NotificationSubscription() != nil {
		t.Fatal("expected nil subscriber")
	}
	if c.WorkflowPublisher() != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}

func TestClientOptionsPrefersInlineCredentials(t *testing.T) {
	if got := len(clientOptions(config.GCPConfig{ProjectID: "p"})); got != 0 {
		t.Fatalf("expected no options, got %d", got)
	}
	if got := len(clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/creds.json"})); got != 1 {
		t.Fatalf("expected one option, got %d", got)
	}
	if got := len(clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds.json"})); got != 1 {
		t.Fatalf("expected one option, got %d", got)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, false, nil); err == nil {
		t.Fatal("expected missing project to fail")
	}
}
