// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Command bitschema validates, describes and compiles bit layout schemas and
// decodes or encodes payloads with them.
package main

func main() {
	execute()
}
