package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: reservation lookups are always by instrument, listings
	// always newest start first.
	`CREATE INDEX IF NOT EXISTS idx_reservas_instrumento
	     ON reservas(instrumento_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reservas_fecha_inicio
	     ON reservas(fecha_inicio DESC)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return importLegacyInstruments(db)
}

// legacyInstrumentColumns are shared by instrumentos and instruments.
const legacyInstrumentColumns = `id, grupo_unidad, responsable, investigador_grupo, instrumento,
	numero_inventario, reserva_uso, estado, ubicacion, descripcion, foto_path, fecha_registro`

// importLegacyInstruments copies rows from the desktop tool's instrumentos
// table into an empty instruments table, keeping ids so existing reservas
// still point at them. The legacy table is left in place.
func importLegacyInstruments(db *sql.DB) error {
	var legacy int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'instrumentos'`,
	).Scan(&legacy)
	if err != nil {
		return fmt.Errorf("checking for legacy instruments: %w", err)
	}
	if legacy == 0 {
		return nil
	}

	var existing int
	if err := db.QueryRow(`SELECT COUNT(*) FROM instruments`).Scan(&existing); err != nil {
		return fmt.Errorf("counting instruments: %w", err)
	}
	if existing > 0 {
		return nil
	}

	_, err = db.Exec(`INSERT INTO instruments (` + legacyInstrumentColumns + `)
		SELECT ` + legacyInstrumentColumns + ` FROM instrumentos`)
	if err != nil {
		return fmt.Errorf("importing legacy instruments: %w", err)
	}
	return nil
}
