package service

import (
	"testing"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
)

// TestResolveCapabilities tests preference-to-channel-set resolution
func TestResolveCapabilities(t *testing.T) {
	tests := []struct {
		name  string
		prefs domain.NotificationPreferences
		want  domain.ChannelSet
	}{
		{
			name:  "store default email only",
			prefs: domain.NotificationPreferences{EmailEnabled: true},
			want:  domain.ChannelSet{Email: true},
		},
		{
			name: "all channels on",
			prefs: domain.NotificationPreferences{
				EmailEnabled:    true,
				SMSEnabled:      true,
				PushEnabled:     true,
				WhatsAppEnabled: true,
			},
			want: domain.ChannelSet{Email: true, SMS: true, Push: true, WhatsApp: true},
		},
		{
			name:  "everything off",
			prefs: domain.NotificationPreferences{},
			want:  domain.ChannelSet{},
		},
		{
			name: "mixed toggles",
			prefs: domain.NotificationPreferences{
				SMSEnabled:  true,
				PushEnabled: true,
			},
			want: domain.ChannelSet{SMS: true, Push: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCapabilities(&tt.prefs)
			if got != tt.want {
				t.Errorf("ResolveCapabilities() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestChannelSetListOrder tests the fixed evaluation order
func TestChannelSetListOrder(t *testing.T) {
	set := domain.ChannelSet{Email: true, SMS: true, Push: true, WhatsApp: true}
	got := set.List()
	want := []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelPush, domain.ChannelWhatsApp}

	if len(got) != len(want) {
		t.Fatalf("List() returned %d channels, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
