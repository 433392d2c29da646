package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/jaywantadh/pdfdiff/internal/compressor"
	"github.com/jaywantadh/pdfdiff/internal/encryptor"
	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

const (
	linesPrefix = "lines:"
	saltKey     = "meta:salt"
)

// Entry is the cached extraction result of one PDF.
type Entry struct {
	Backend   string   `json:"backend"`
	Hash      string   `json:"hash"`
	Lines     []string `json:"lines"`
	Pages     int      `json:"pages"`
	CreatedAt int64    `json:"created_at"` // Unix timestamp
}

// Stats summarises the cache contents.
type Stats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// Store wraps BadgerDB for cached extraction results. Values are lz4
// compressed and, when a passphrase is configured, sealed with
// ChaCha20-Poly1305.
type Store struct {
	db     *badger.DB
	enc    encryptor.Encryptor
	logger *logrus.Logger
}

// Open opens (or creates) a cache at the given path. An empty passphrase
// stores entries unencrypted.
func Open(dbPath, passphrase string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	s := &Store{db: db, logger: logger}

	if passphrase != "" {
		salt, err := s.loadOrCreateSalt()
		if err != nil {
			db.Close()
			return nil, err
		}
		enc, err := encryptor.NewEncryptor(passphrase, salt)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.enc = enc
	}

	logger.WithFields(logrus.Fields{"path": dbPath, "encrypted": s.enc != nil}).Debug("🗄️ Extraction cache opened")
	return s, nil
}

// Close closes the BadgerDB.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadOrCreateSalt() ([]byte, error) {
	var salt []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(saltKey))
		if err == nil {
			salt, err = item.ValueCopy(nil)
			return err
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		salt, err = encryptor.NewSalt()
		if err != nil {
			return err
		}
		return txn.Set([]byte(saltKey), salt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cache salt: %w", err)
	}
	return salt, nil
}

// Key builds the cache key for a document hash extracted by backend with
// the given option variant (for example "nfc+trim").
func Key(backend, variant, hash string) string {
	return linesPrefix + backend + ":" + variant + ":" + hash
}

// HashFile returns the hex BLAKE2b-256 digest of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Put stores an entry under key.
func (s *Store) Put(key string, entry Entry) error {
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	val, err = compressor.Compress(val)
	if err != nil {
		return err
	}
	if s.enc != nil {
		if val, err = s.enc.Seal(val); err != nil {
			return fmt.Errorf("failed to seal cache entry: %w", err)
		}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// Get retrieves the entry stored under key. ok is false on a miss. Entries
// that cannot be decoded (for example written with another passphrase) are
// reported as misses.
func (s *Store) Get(key string) (entry Entry, ok bool, err error) {
	var raw []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if err := s.decode(raw, &entry); err != nil {
		s.logger.WithField("key", key).Warnf("⚠️ Ignoring unreadable cache entry: %v", err)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *Store) decode(raw []byte, entry *Entry) error {
	var err error
	if s.enc != nil {
		if raw, err = s.enc.Open(raw); err != nil {
			return err
		}
	}
	if raw, err = compressor.Decompress(raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, entry)
}

// Stats counts cached extraction entries and their on-disk size estimate.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(linesPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			st.Entries++
			st.Bytes += it.Item().EstimatedSize()
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to scan cache: %w", err)
	}
	return st, nil
}

// Clear removes every cached extraction. The encryption salt is kept so
// the configured passphrase stays valid.
func (s *Store) Clear() error {
	if err := s.db.DropPrefix([]byte(linesPrefix)); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
