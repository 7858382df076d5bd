package logger

import (
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Domain uint8

const (
	UnknownDomain Domain = iota
	AllDomain
	InitDomain
	CLIDomain
	FileSystemDomain
	GCSDomain
	GitHubDomain
	HTTPSDomain
	LockDomain
	ResolveDomain
	S3Domain
	VerifyDomain
)

var (
	domainFromString = map[string]Domain{
		"all":     AllDomain,
		"init":    InitDomain,
		"cli":     CLIDomain,
		"fs":      FileSystemDomain,
		"gcs":     GCSDomain,
		"github":  GitHubDomain,
		"https":   HTTPSDomain,
		"lock":    LockDomain,
		"resolve": ResolveDomain,
		"s3":      S3Domain,
		"verify":  VerifyDomain,
	}

	stringFromDomain = map[Domain]string{
		AllDomain:        "all",
		InitDomain:       "init",
		CLIDomain:        "cli",
		FileSystemDomain: "fs",
		GCSDomain:        "gcs",
		GitHubDomain:     "github",
		HTTPSDomain:      "https",
		LockDomain:       "lock",
		ResolveDomain:    "resolve",
		S3Domain:         "s3",
		VerifyDomain:     "verify",
	}
)

// Domains returns the names accepted by SetDomainLevel, sorted alphabetically.
func Domains() []string {
	names := make([]string, 0, len(domainFromString))
	for n := range domainFromString {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type Builder struct {
	log          *zap.Logger
	defaultLevel zapcore.Level
	domainLevels map[Domain]zapcore.Level
	cache        map[Domain]*zap.Logger
}

func NewBuilder(out zapcore.WriteSyncer) *Builder {
	enc := newEncoder()
	return &Builder{
		log:          zap.New(zapcore.NewCore(enc, out, zapcore.DebugLevel)),
		defaultLevel: zap.InfoLevel,
		domainLevels: map[Domain]zapcore.Level{},
		cache:        map[Domain]*zap.Logger{},
	}
}

// NewTestBuilder returns a builder whose loggers discard all output.
func NewTestBuilder() *Builder {
	return NewBuilder(zapcore.AddSync(io.Discard))
}

func (b *Builder) SetDomainLevel(domain string, level zapcore.Level) {
	d := domainFromString[domain]
	switch d {
	case UnknownDomain:
		b.log.Warn("Unrecognised logger domain.", zap.String("domain", domain), zap.Strings("known", Domains()))
	case AllDomain:
		b.defaultLevel = level
	case InitDomain, CLIDomain, FileSystemDomain, GCSDomain, GitHubDomain, HTTPSDomain, LockDomain, S3Domain, VerifyDomain:
		b.domainLevels[d] = level
	default:
		panic(fmt.Sprintf("unexpected domain %q", d))
	}
}

func (b *Builder) Domain(domain Domain) *zap.Logger {
	return b.logger(domain)
}

func (b *Builder) logger(domain Domain) *zap.Logger {
	if _, ok := b.cache[domain]; !ok {
		targetLevel := b.defaultLevel
		if lvl, ok := b.domainLevels[domain]; ok {
			targetLevel = lvl
		}
		b.cache[domain] = b.log.Named(stringFromDomain[domain]).WithOptions(zap.IncreaseLevel(targetLevel))
	}
	return b.cache[domain]
}
