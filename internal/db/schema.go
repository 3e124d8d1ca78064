package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// Column names of instruments and reservas match the files written by the
// earlier desktop tool. That tool named the instrument table instrumentos;
// Migrate copies its rows over (see importLegacyInstruments).
// Timestamps are TEXT in local time, formatted as YYYY-MM-DD HH:MM:SS.
const schema = `
CREATE TABLE IF NOT EXISTS instruments (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    grupo_unidad       TEXT,
    responsable        TEXT,
    investigador_grupo TEXT NOT NULL,
    instrumento        TEXT NOT NULL,
    numero_inventario  TEXT,
    reserva_uso        TEXT,
    estado             TEXT,
    ubicacion          TEXT,
    descripcion        TEXT,
    foto_path          TEXT,
    fecha_registro     TEXT
);

CREATE TABLE IF NOT EXISTS reservas (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    instrumento_id INTEGER NOT NULL,
    usuario        TEXT NOT NULL,
    fecha_inicio   TEXT NOT NULL,
    fecha_fin      TEXT NOT NULL,
    comentario     TEXT,
    estado         TEXT,
    fecha_registro TEXT,
    FOREIGN KEY(instrumento_id) REFERENCES instruments(id)
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
