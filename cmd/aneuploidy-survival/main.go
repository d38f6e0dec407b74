// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import "github.com/aneuploidy/survival"

func main() {
	survival.Main()
}
