package models

// Profile holds the extended attributes of a remote account. Fields the
// remote service omits are zero: not private, no followers, no media and an
// empty biography.
type Profile struct {
	ID            string `json:"id"`
	Handle        string `json:"handle"`
	IsPrivate     bool   `json:"is_private"`
	FollowerCount int    `json:"follower_count"`
	MediaCount    int    `json:"media_count"`
	Biography     string `json:"biography,omitempty"`
}

// FollowingUser is one entry of an account's following list.
type FollowingUser struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	IsPrivate bool   `json:"is_private"`
}

// HashtagMedia is one top post for a hashtag, with its author and
// engagement counts. Missing counts are zero; a missing caption is "".
type HashtagMedia struct {
	ID           string `json:"id"`
	AuthorID     string `json:"author_id,omitempty"`
	AuthorHandle string `json:"author_handle"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	CaptionText  string `json:"caption_text,omitempty"`
}
