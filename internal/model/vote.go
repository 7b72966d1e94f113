package model

import (
	"fmt"
	"slices"
)

type Vote string

const (
	VoteLike    Vote = "like"
	VoteDislike Vote = "dislike"
)

func ParseVote(s string) (Vote, error) {
	switch v := Vote(s); v {
	case VoteLike, VoteDislike:
		return v, nil
	default:
		return "", fmt.Errorf("unknown vote %q", s)
	}
}

// ApplyVote toggles userID's vote on a copy of c. Voting the same way twice
// withdraws the vote; voting the other way moves the user between sets in one
// step, so Likes and Dislikes never share a user.
func (c Comment) ApplyVote(userID string, vote Vote) Comment {
	out := c.Clone()

	var same, opposite *[]string
	switch vote {
	case VoteLike:
		same, opposite = &out.Likes, &out.Dislikes
	case VoteDislike:
		same, opposite = &out.Dislikes, &out.Likes
	default:
		return out
	}

	if slices.Contains(*same, userID) {
		*same = remove(*same, userID)
		return out
	}

	*same = append(*same, userID)
	*opposite = remove(*opposite, userID)
	return out
}

// VoteOf returns the current vote of userID, or "" if there is none.
func (c Comment) VoteOf(userID string) Vote {
	switch {
	case slices.Contains(c.Likes, userID):
		return VoteLike
	case slices.Contains(c.Dislikes, userID):
		return VoteDislike
	default:
		return ""
	}
}

func remove(set []string, userID string) []string {
	return slices.DeleteFunc(set, func(id string) bool { return id == userID })
}
