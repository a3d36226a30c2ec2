package service

import (
	"github.com/vhvplatform/go-reminder-service/internal/domain"
)

// ResolveRecipients flattens an item's ownership graph into the list of
// profiles that should receive its reminders: the owner plus every shared
// profile. The rest of the pipeline only ever sees (item, recipient)
// pairs and never reasons about sharing itself.
func ResolveRecipients(item *domain.Item) []string {
	recipients := []string{item.OwnerID}
	seen := map[string]bool{item.OwnerID: true}

	for _, grant := range item.SharedWith {
		if grant.ProfileID == "" || seen[grant.ProfileID] {
			continue
		}
		seen[grant.ProfileID] = true
		recipients = append(recipients, grant.ProfileID)
	}

	return recipients
}
