package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// targetingProfile is the on-disk shape of DISCOVERY_PROFILE. Fields left out
// of the file keep the values resolved from the environment.
type targetingProfile struct {
	Seeds    []string `yaml:"seeds"`
	Hashtags []string `yaml:"hashtags"`
	Limits   struct {
		Following *int `yaml:"following"`
		Hashtag   *int `yaml:"hashtag"`
	} `yaml:"limits"`
	Filters struct {
		MinFollowers     *int `yaml:"min_followers"`
		MinPosts         *int `yaml:"min_posts"`
		MinLikes         *int `yaml:"min_likes"`
		MinComments      *int `yaml:"min_comments"`
		MinCaptionLength *int `yaml:"min_caption_length"`
	} `yaml:"filters"`
}

func applyProfile(dst *DiscoveryConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}

	var p targetingProfile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("parse profile: %w", err)
	}

	if len(p.Seeds) > 0 {
		dst.Seeds = p.Seeds
	}
	if len(p.Hashtags) > 0 {
		dst.Hashtags = p.Hashtags
	}

	ints := []struct {
		src *int
		dst *int
	}{
		{p.Limits.Following, &dst.FollowingLimit},
		{p.Limits.Hashtag, &dst.HashtagLimit},
		{p.Filters.MinFollowers, &dst.Filters.MinFollowers},
		{p.Filters.MinPosts, &dst.Filters.MinPosts},
		{p.Filters.MinLikes, &dst.Filters.MinLikes},
		{p.Filters.MinComments, &dst.Filters.MinComments},
		{p.Filters.MinCaptionLength, &dst.Filters.MinCaptionLength},
	}
	for _, v := range ints {
		if v.src == nil {
			continue
		}
		if *v.src < 0 {
			return fmt.Errorf("negative threshold %d", *v.src)
		}
		*v.dst = *v.src
	}

	return nil
}
