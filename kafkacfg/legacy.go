package kafkacfg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
)

var (
	// ErrUnpinnedImage is returned when a broker image reference carries no
	// version tag. The legacy-mode override is version sensitive, so
	// floating tags are rejected outright.
	ErrUnpinnedImage = errors.New("broker image tag is not pinned to a version")
	// ErrOverrideUnverified is returned when the broker image version is at
	// or above the KRaft cutover, where the environment override's
	// precedence over the binary's own mode auto-detection is not a given.
	ErrOverrideUnverified = errors.New("legacy-mode override not verified for this broker version")
)

// legacyOverrideCutover is the first broker line where KRaft mode became
// the preferred default and images began auto-detecting the operating mode
// from ambient configuration. Below this, forcing ZooKeeper mode via the
// environment is known to work; at or above it, verify against the exact
// image in use or pin an older tag.
var legacyOverrideCutover = semver.MustParse("3.4.0")

// LegacyModeEnv returns the environment overrides applied before handing
// off to the broker to suppress self-managed consensus mode. These are a
// best-effort signal; the binary's precedence between environment and its
// configuration file has the final say.
func LegacyModeEnv() map[string]string {
	return map[string]string{
		"KAFKA_ENABLE_KRAFT":  "no",
		"KAFKA_PROCESS_ROLES": "",
	}
}

// imageTag splits an image reference and returns its tag.
func imageTag(image string) (string, bool) {
	// The tag separator is the last colon after the last slash, so
	// registry ports don't read as tags.
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon < 0 || colon < slash {
		return "", false
	}

	return image[colon+1:], true
}

// VerifyLegacyOverride checks whether forcing legacy coordination mode via
// the environment is known to be effective for the given broker image
// reference. It returns nil for pinned pre-cutover versions,
// ErrOverrideUnverified for cutover-or-later versions, and
// ErrUnpinnedImage or a parse error when the tag can't be evaluated.
func VerifyLegacyOverride(image string) error {
	tag, ok := imageTag(image)
	if !ok || tag == "latest" {
		return fmt.Errorf("%w: %s", ErrUnpinnedImage, image)
	}

	v, err := semver.NewVersion(tag)
	if err != nil {
		return fmt.Errorf("broker image tag %q: %s", tag, err)
	}

	if !v.LessThan(legacyOverrideCutover) {
		return fmt.Errorf("%w: %s >= %s; verify against this image or pin an older tag",
			ErrOverrideUnverified, tag, legacyOverrideCutover)
	}

	return nil
}

// ForceLegacyMode rewrites a broker fragment so that it cannot select
// self-managed consensus mode: KRaft-only keys are removed and the
// coordination-service connect string is required to be present.
func ForceLegacyMode(p *Properties, connect ZKConnect) error {
	if len(connect.Hosts) == 0 {
		return ErrEmptyConnect
	}

	for _, k := range []string{"process.roles", "node.id", "controller.quorum.voters", "controller.listener.names"} {
		p.Unset(k)
	}

	p.Set("zookeeper.connect", connect.String())

	return nil
}
