package domain

import "strings"

// Environment identifies a target build container or OS (e.g. "debian:12").
type Environment string

// Output groups. Each group is written as its own artifact.
const (
	GroupLinux = "linux"
	GroupBSD   = "bsd"
)

// DefaultEnvironments is the static list of targets a system variant is
// tested against.
var DefaultEnvironments = []Environment{
	"opensuse/tumbleweed",
	"debian:12",
	"debian:10",
	"ubuntu:jammy",
	"ubuntu:focal",
	"almalinux:8",
	"almalinux:9",
	"archlinux",
	"fedora",
	"quay.io/centos/centos:stream8",
	"freebsd",
}

// Group returns the output group an environment belongs to.
func (e Environment) Group() string {
	if strings.Contains(strings.ToLower(string(e)), "bsd") {
		return GroupBSD
	}
	return GroupLinux
}

// ParseEnvironments converts configured identifiers, dropping blanks and
// duplicates while keeping order.
func ParseEnvironments(ids []string) []Environment {
	seen := make(map[string]struct{}, len(ids))
	envs := make([]Environment, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		envs = append(envs, Environment(id))
	}
	return envs
}
