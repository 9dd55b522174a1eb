//go:build tools

package libra

import (
	_ "github.com/golang/mock/mockgen"
)
