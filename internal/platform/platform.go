// Package platform enumerates the three target environments a Gren project
// or package may declare and defines the root/dependency compatibility rule.
package platform

import "fmt"

// Platform is one of Common, Browser, or Node.
type Platform int

const (
	Common Platform = iota
	Browser
	Node
)

func (p Platform) String() string {
	switch p {
	case Common:
		return "common"
	case Browser:
		return "browser"
	case Node:
		return "node"
	default:
		return "unknown"
	}
}

// Parse converts a manifest platform string into a Platform.
func Parse(s string) (Platform, error) {
	switch s {
	case "common":
		return Common, nil
	case "browser":
		return Browser, nil
	case "node":
		return Node, nil
	default:
		return 0, fmt.Errorf("%q is not a supported platform (want common, browser, or node)", s)
	}
}

// Compatible reports whether a dependency declaring platform d may be used
// by a project rooted at platform root: root == d, or d == common.
func Compatible(root, d Platform) bool {
	return root == d || d == Common
}
