package db

import "context"

// ResetData empties every application table. Schema and migration history
// are left alone.
func ResetData(ctx context.Context, conn Conn) error {
	_, err := conn.Exec(ctx, `TRUNCATE tasks, project_members, projects, users CASCADE`)
	return err
}
