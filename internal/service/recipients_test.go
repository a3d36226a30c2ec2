package service

import (
	"testing"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
)

// TestResolveRecipients tests owner plus shared-profile flattening
func TestResolveRecipients(t *testing.T) {
	tests := []struct {
		name       string
		ownerID    string
		sharedWith []domain.ShareGrant
		want       []string
	}{
		{
			name:    "owner only",
			ownerID: "owner-1",
			want:    []string{"owner-1"},
		},
		{
			name:    "owner plus shared profiles",
			ownerID: "owner-1",
			sharedWith: []domain.ShareGrant{
				{ProfileID: "friend-1"},
				{ProfileID: "friend-2"},
			},
			want: []string{"owner-1", "friend-1", "friend-2"},
		},
		{
			name:    "duplicate grants collapse",
			ownerID: "owner-1",
			sharedWith: []domain.ShareGrant{
				{ProfileID: "friend-1"},
				{ProfileID: "friend-1"},
			},
			want: []string{"owner-1", "friend-1"},
		},
		{
			name:    "grant back to owner collapses",
			ownerID: "owner-1",
			sharedWith: []domain.ShareGrant{
				{ProfileID: "owner-1"},
			},
			want: []string{"owner-1"},
		},
		{
			name:    "empty profile id ignored",
			ownerID: "owner-1",
			sharedWith: []domain.ShareGrant{
				{ProfileID: ""},
				{ProfileID: "friend-1"},
			},
			want: []string{"owner-1", "friend-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &domain.Item{OwnerID: tt.ownerID, SharedWith: tt.sharedWith}
			got := ResolveRecipients(item)

			if len(got) != len(tt.want) {
				t.Fatalf("ResolveRecipients() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ResolveRecipients()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
