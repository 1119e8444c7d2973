// SPDX-FileCopyrightText: 2026 The guestboot authors
//
// SPDX-License-Identifier: MIT

package cmd

import (
	"io"
	"log/slog"
)

func setupLogging(writer io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		writer,
		&slog.HandlerOptions{
			Level: level,
		},
	)))
}
