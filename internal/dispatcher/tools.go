package dispatcher

import "github.com/graphmemory/graphmemory/pkg/types"

func builtinTools() []ToolDef {
	admin := []types.Permission{types.PermissionAdmin}
	adminOrWrite := []types.Permission{types.PermissionAdmin, types.PermissionWrite}
	write := []types.Permission{types.PermissionWrite, types.PermissionAdmin}
	read := []types.Permission{types.PermissionRead, types.PermissionWrite, types.PermissionAdmin}

	return []ToolDef{
		{Name: "memory_create", Permissions: adminOrWrite, Handle: handleMemoryCreate},
		{Name: "memory_delete", Permissions: admin, Scope: memoryIDScope, Handle: handleMemoryDelete},
		{Name: "memory_list", Permissions: read, Handle: handleMemoryList},
		{Name: "memory_stats", Permissions: read, Scope: memoryIDScope, Handle: handleMemoryStats},
		{Name: "memory_graph", Permissions: read, Scope: memoryIDScope, Handle: handleMemoryGraph},
		{Name: "memory_ingest", Permissions: write, Scope: memoryIDScope, Handle: handleMemoryIngest},
		{Name: "memory_search", Permissions: read, Scope: memoryIDScope, Handle: handleMemorySearch},
		{Name: "memory_get_context", Permissions: read, Scope: memoryIDScope, Handle: handleMemoryGetContext},
		{Name: "question_answer", Permissions: read, Scope: memoryIDScope, Handle: handleQuestionAnswer},
		{Name: "memory_query", Permissions: read, Scope: memoryIDScope, Handle: handleMemoryQuery},
		{Name: "document_list", Permissions: read, Scope: memoryIDScope, Handle: handleDocumentList},
		{Name: "document_get", Permissions: read, Scope: memoryIDScope, Handle: handleDocumentGet},
		{Name: "document_delete", Permissions: write, Scope: memoryIDScope, Handle: handleDocumentDelete},
		{Name: "ontology_list", Permissions: read, Handle: handleOntologyList},
		{Name: "storage_check", Permissions: admin, Scope: memoryIDScope, Handle: handleStorageCheck},
		{Name: "storage_cleanup", Permissions: admin, Scope: memoryIDScope, Handle: handleStorageCleanup},
		{Name: "backup_create", Permissions: admin, Scope: memoryIDScope, Handle: handleBackupCreate},
		{Name: "backup_list", Permissions: admin, Scope: memoryIDScope, Handle: handleBackupList},
		{Name: "backup_restore", Permissions: admin, Handle: handleBackupRestore},
		{Name: "backup_download", Permissions: admin, Handle: handleBackupDownload},
		{Name: "backup_delete", Permissions: admin, Handle: handleBackupDelete},
		{Name: "backup_restore_archive", Permissions: admin, Handle: handleBackupRestoreArchive},
		{Name: "admin_create_token", Permissions: admin, Handle: handleAdminCreateToken},
		{Name: "admin_list_tokens", Permissions: admin, Handle: handleAdminListTokens},
		{Name: "admin_revoke_token", Permissions: admin, Handle: handleAdminRevokeToken},
		{Name: "admin_update_token", Permissions: admin, Handle: handleAdminUpdateToken},
		{Name: "system_health", Permissions: read, Handle: handleSystemHealth},
	}
}
