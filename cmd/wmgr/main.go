// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package main

import (
	wmgr "github.com/archmagece/wmgr"
	"github.com/archmagece/wmgr/cmd/wmgr/cmd"
)

func main() {
	cmd.Execute(wmgr.ShortVersion())
}
