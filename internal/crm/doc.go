// Package crm mirrors locally-committed referral records into an external
// Salesforce-style CRM while the local store stays the system of record.
//
// The package is built from five pieces: credential resolution (user
// settings > environment > demo org), a session manager owning the
// authenticated connection, an upsert resolver that correlates records by
// referral number, a sync executor producing a uniform Outcome for every
// attempt, and a simulation fallback that satisfies the same contract when
// no usable session exists. A dispatcher serializes attempts per referral
// number so a slow early sync can never overwrite the result of a later
// local write.
package crm
