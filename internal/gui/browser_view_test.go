package gui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/objectdesk/objectdesk/internal/events"
)

func TestListingFailedStatus(t *testing.T) {
	tests := []struct {
		name string
		ev   *events.ListingFailedEvent
		want string
	}{
		{"with reason", events.NewListingFailedEvent("reports", "2024/", "access denied"), "Listing s3://reports/2024/ failed: access denied"},
		{"bucket root", events.NewListingFailedEvent("reports", "", "timeout"), "Listing s3://reports failed: timeout"},
		{"no reason", events.NewListingFailedEvent("reports", "a/", ""), "Listing s3://reports/a/ failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listingFailedStatus(tt.ev))
		})
	}
}
