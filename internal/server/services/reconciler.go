package services

import (
	"context"
	"time"

	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/server/models"
)

// Reconciler is the seam between the write services and the sync engine.
// Both methods return immediately; the attempt runs on the dispatcher's
// per-key queue.
type Reconciler interface {
	EnqueueUpsert(key string, writeTime time.Time, rec crm.ReferralRecord, persist crm.PersistFunc)
	EnqueueDelete(key string, writeTime time.Time, persist crm.PersistFunc)
}

// CRMReconciler routes local writes through the dispatcher to the
// executor, keyed by referral number.
type CRMReconciler struct {
	dispatcher *crm.Dispatcher
	executor   *crm.Executor
}

func NewCRMReconciler(dispatcher *crm.Dispatcher, executor *crm.Executor) *CRMReconciler {
	return &CRMReconciler{dispatcher: dispatcher, executor: executor}
}

func (r *CRMReconciler) EnqueueUpsert(key string, writeTime time.Time, rec crm.ReferralRecord, persist crm.PersistFunc) {
	r.dispatcher.Enqueue(key, writeTime, func(ctx context.Context) crm.Outcome {
		return r.executor.SyncRecord(ctx, rec)
	}, persist)
}

func (r *CRMReconciler) EnqueueDelete(key string, writeTime time.Time, persist crm.PersistFunc) {
	r.dispatcher.Enqueue(key, writeTime, func(ctx context.Context) crm.Outcome {
		return r.executor.DeleteRecord(ctx, key)
	}, persist)
}

// outcomeToSyncResult maps a reconciliation outcome onto the columns
// persisted locally. Simulated attempts are reported as simulated even
// though they "succeed", so operators can tell the two apart.
func outcomeToSyncResult(o crm.Outcome) models.SyncResult {
	status := models.SyncFailed
	switch {
	case o.Mode == crm.ModeSimulation:
		status = models.SyncSimulated
	case o.Success:
		status = models.SyncSynced
	}
	return models.SyncResult{
		RemoteID:  o.RemoteID,
		Status:    status,
		WriteTime: o.WriteTime,
	}
}
