package storage

import (
	"time"

	"github.com/pders01/treehole/internal/api"
)

// PostRecord is a post as last seen from the server.
type PostRecord struct {
	api.Post
	SeenAt time.Time `json:"seen_at"`
}

// savedQuery keeps the feed query between runs.
type savedQuery struct {
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	Field     string `json:"field"`
	Direction string `json:"direction"`
	LikeRange string `json:"like_range"`
}
