package crm

import (
	"context"
	"fmt"
	"strings"
)

// LookupReferral resolves a business key against the org: exactly one match
// means the record exists, zero means it is new. A query failure propagates
// to the caller, which decides whether to fall back to simulation; the
// resolver never guesses create-vs-update.
//
// Eventual consistency can surface more than one match for the same
// referral number. The resolver then deterministically takes the first
// record in returned order and logs a reconciliation warning; it never
// creates a duplicate.
func (c *Client) LookupReferral(ctx context.Context, referralNumber string) (bool, string, error) {
	soql := fmt.Sprintf("SELECT Id FROM %s WHERE %s = '%s'",
		referralObject, referralNumberField, escapeSOQL(referralNumber))

	result, err := c.Query(ctx, soql)
	if err != nil {
		return false, "", err
	}

	switch len(result.Records) {
	case 0:
		return false, "", nil
	case 1:
		return true, result.Records[0].ID, nil
	default:
		c.logger.Warn(ctx, "multiple remote records for referral number, using first",
			"referralNumber", referralNumber, "matches", len(result.Records))
		return true, result.Records[0].ID, nil
	}
}

// CreateReferral inserts the record into the org and returns the remote id.
func (c *Client) CreateReferral(ctx context.Context, rec ReferralRecord) (string, error) {
	return c.CreateObject(ctx, referralObject, referralFields(rec))
}

// UpdateReferral patches the remote record resolved for this business key.
func (c *Client) UpdateReferral(ctx context.Context, recordID string, rec ReferralRecord) error {
	return c.UpdateObject(ctx, referralObject, recordID, referralFields(rec))
}

// DeleteReferral removes the remote record by id.
func (c *Client) DeleteReferral(ctx context.Context, recordID string) error {
	return c.DeleteObject(ctx, referralObject, recordID)
}

// escapeSOQL escapes quote and backslash characters in a SOQL string
// literal.
func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
