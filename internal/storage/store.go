package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/session"
	bolt "go.etcd.io/bbolt"
)

var (
	sessionBucket = []byte("session")
	postsBucket   = []byte("posts")
	prefsBucket   = []byte("prefs")

	credentialKey = []byte("credential")
	queryKey      = []byte("query")
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string, timeout ...time.Duration) (*Store, error) {
	wait := 1 * time.Second
	if len(timeout) > 0 && timeout[0] > 0 {
		wait = timeout[0]
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: wait})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{sessionBucket, postsBucket, prefsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
}

func (s *Store) get(bucket, key []byte, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, v)
	})
}

// SaveCredential, LoadCredential and DeleteCredential make the store a
// session.Persister.
func (s *Store) SaveCredential(cred session.Credential) error {
	return s.put(sessionBucket, credentialKey, cred)
}

// LoadCredential returns the zero credential when none is stored.
func (s *Store) LoadCredential() (session.Credential, error) {
	var cred session.Credential
	err := s.get(sessionBucket, credentialKey, &cred)
	if errors.Is(err, ErrNotFound) {
		return session.Credential{}, nil
	}
	return cred, err
}

func (s *Store) DeleteCredential() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(credentialKey)
	})
}

// SavePosts upserts posts keyed by their stable key.
func (s *Store) SavePosts(posts []api.Post) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(postsBucket)
		for _, post := range posts {
			data, err := json.Marshal(PostRecord{Post: post, SeenAt: now})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(post.Key()), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetPost(key string) (*PostRecord, error) {
	var rec PostRecord
	if err := s.get(postsBucket, []byte(key), &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("post %s: %w", key, err)
		}
		return nil, err
	}
	return &rec, nil
}

// GetPosts returns stored posts newest first. An empty author matches all.
func (s *Store) GetPosts(author string, limit int) ([]*PostRecord, error) {
	var posts []*PostRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(postsBucket)
		return b.ForEach(func(_ []byte, v []byte) error {
			var rec PostRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if author == "" || strings.EqualFold(rec.Author, author) {
				posts = append(posts, &rec)
			}
			return nil
		})
	})
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].DateGMT.After(posts[j].DateGMT.Time)
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, err
}

func (s *Store) CountPosts() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(postsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// PrunePosts removes posts not seen since cutoff and returns how many went.
func (s *Store) PrunePosts(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(postsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec PostRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if rec.SeenAt.Before(cutoff) {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (s *Store) SaveQuery(q query.State) error {
	return s.put(prefsBucket, queryKey, savedQuery{
		Page:      q.Page,
		PageSize:  q.PageSize,
		Field:     q.Field.String(),
		Direction: q.Direction.String(),
		LikeRange: string(q.LikeRange),
	})
}

// LoadQuery returns the saved query, or false when there is none or it no
// longer validates.
func (s *Store) LoadQuery() (query.State, bool, error) {
	var saved savedQuery
	if err := s.get(prefsBucket, queryKey, &saved); err != nil {
		if errors.Is(err, ErrNotFound) {
			return query.Default(), false, nil
		}
		return query.Default(), false, err
	}

	field, err := query.ParseSortField(saved.Field)
	if err != nil {
		return query.Default(), false, nil
	}
	dir, err := query.ParseDirection(saved.Direction)
	if err != nil {
		return query.Default(), false, nil
	}
	q := query.State{
		Page:      saved.Page,
		PageSize:  saved.PageSize,
		Field:     field,
		Direction: dir,
		LikeRange: query.LikeRange(saved.LikeRange),
	}
	if q.Validate() != nil {
		return query.Default(), false, nil
	}
	return q, true, nil
}
