package match

import (
	"fmt"
	"time"
)

// ReswipePolicy decides what a new interest action does to a rejected edge.
type ReswipePolicy string

const (
	// ReswipeForbid keeps rejections final.
	ReswipeForbid ReswipePolicy = "forbid"
	// ReswipeAllow reopens a rejected edge immediately.
	ReswipeAllow ReswipePolicy = "allow"
	// ReswipeCooldown reopens a rejected edge once the cooldown since the rejection has passed.
	ReswipeCooldown ReswipePolicy = "cooldown"
)

// ParseReswipePolicy accepts the configuration spelling of a policy. Empty means forbid.
func ParseReswipePolicy(s string) (ReswipePolicy, error) {
	switch p := ReswipePolicy(s); p {
	case "":
		return ReswipeForbid, nil
	case ReswipeForbid, ReswipeAllow, ReswipeCooldown:
		return p, nil
	}
	return "", fmt.Errorf("unknown reswipe policy %q", s)
}

type Options struct {
	ReswipePolicy   ReswipePolicy
	ReswipeCooldown time.Duration

	// LockTimeout bounds the wait for a pair lock. Zero waits as long as the context allows.
	LockTimeout time.Duration

	// MaxAttempts bounds how often one action is tried against conflicts and transient
	// store failures.
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ReswipePolicy == "" {
		o.ReswipePolicy = ReswipeForbid
	}
	if o.ReswipePolicy == ReswipeCooldown && o.ReswipeCooldown <= 0 {
		o.ReswipeCooldown = 30 * 24 * time.Hour
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 5
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 10 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 200 * time.Millisecond
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
