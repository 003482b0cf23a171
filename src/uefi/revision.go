package uefi

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Revision is a firmware specification revision: major in the upper 16
// bits, minor*10+patch in the lower 16 (2.70 is 2<<16 | 70).
type Revision uint32

func NewRevision(major, minor uint16) Revision {
	return Revision(uint32(major)<<16 | uint32(minor))
}

func (r Revision) Major() uint16 { return uint16(r >> 16) }
func (r Revision) Minor() uint16 { return uint16(r) }

func (r Revision) String() string {
	v := r.Semver()
	if v.Patch() == 0 {
		return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
	}
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// Semver maps 2.70 to 2.7.0 and 2.31 to 2.3.1.
func (r Revision) Semver() *semver.Version {
	return semver.New(uint64(r.Major()), uint64(r.Minor()/10), uint64(r.Minor()%10), "", "")
}

// Satisfies checks r against a constraint such as ">= 2.3".
func (r Revision) Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("uefi: revision constraint %q: %w", constraint, err)
	}
	return c.Check(r.Semver()), nil
}
