package kuriimu

import (
	"database/sql"
	"fmt"

	"github.com/cegfdb/Kuriimu/container"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// TextureDB is a catalog of texture records stored in SQLite. Records are
// kept zstd compressed.
type TextureDB struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewTextureDB(file string) (*TextureDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS texture (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, sha1 TEXT NOT NULL, record BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS texture_sha1 ON texture (sha1)"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &TextureDB{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

func (db *TextureDB) Close() error {
	db.dec.Close()
	if err := db.enc.Close(); err != nil {
		db.db.Close()
		return err
	}
	return db.db.Close()
}

func (db *TextureDB) marshal(r *container.Record) ([]byte, error) {
	b, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return db.enc.EncodeAll(b, nil), nil
}

func (db *TextureDB) unmarshal(blob []byte) (*container.Record, error) {
	b, err := db.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, err
	}
	r := new(container.Record)
	if err := r.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return r, nil
}

// AddTexture stores r under name, replacing any texture with the same name
// unless it was made from the same source, identified by sha.
func (db *TextureDB) AddTexture(name, sha string, r *container.Record) (int64, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM texture WHERE name = ? AND sha1 = ?", name, sha).Scan(&id); err {
	case sql.ErrNoRows:
		blob, err := db.marshal(r)
		if err != nil {
			return 0, err
		}
		result, err := db.db.Exec("INSERT OR REPLACE INTO texture (name, sha1, record) VALUES (?, ?, ?)", name, sha, blob)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

func (db *TextureDB) findTexture(query string, args ...interface{}) (*container.Record, error) {
	var blob []byte
	switch err := db.db.QueryRow(query, args...).Scan(&blob); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return db.unmarshal(blob)
	default:
		return nil, err
	}
}

// FindTextureByName returns the texture stored under name or nil if there
// is none.
func (db *TextureDB) FindTextureByName(name string) (*container.Record, error) {
	return db.findTexture("SELECT record FROM texture WHERE name = ?", name)
}

// FindTextureBySHA1 returns the first texture made from a source with the
// given SHA-1 or nil if there is none.
func (db *TextureDB) FindTextureBySHA1(sha string) (*container.Record, error) {
	return db.findTexture("SELECT record FROM texture WHERE sha1 = ? ORDER BY id LIMIT 1", sha)
}

// Names returns the name of every texture in the catalog, sorted.
func (db *TextureDB) Names() ([]string, error) {
	rows, err := db.db.Query("SELECT name FROM texture ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
