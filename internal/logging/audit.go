package logging

// =============================================================================
// AUDIT EVENTS - tier transitions worth reconstructing after the fact
// =============================================================================

// AuditEventType names a storage tier transition.
type AuditEventType string

const (
	AuditModeDetected     AuditEventType = "mode_detected"      // backend mode fixed at startup
	AuditHandleRestored   AuditEventType = "handle_restored"    // token loaded from settings
	AuditPermissionState  AuditEventType = "permission_state"   // state changed after a check
	AuditFolderPicked     AuditEventType = "folder_picked"      // new directory granted
	AuditFolderInvalid    AuditEventType = "folder_invalid"     // watcher saw the directory go away
	AuditMigrated         AuditEventType = "migrated"           // legacy form re-saved in the current format
	AuditFallbackRead     AuditEventType = "fallback_read"      // value served by the embedded store
	AuditQuotaExceeded    AuditEventType = "quota_exceeded"     // mirror or fallback is full
	AuditBulkSyncComplete AuditEventType = "bulk_sync_complete" // SyncEngine finished
)

// Audit writes a structured audit event. fields are zap key/value pairs.
func Audit(event AuditEventType, key string, fields ...interface{}) {
	l := Get(CategoryAudit)
	kv := append([]interface{}{"event", string(event), "key", key}, fields...)
	l.sugar.Infow("audit", kv...)
}
