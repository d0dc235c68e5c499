// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/medchat-tui/internal/audio"
	"github.com/jeranaias/medchat-tui/internal/backend"
	"github.com/jeranaias/medchat-tui/internal/util"
)

// synthesizer turns text into speech audio.
type synthesizer interface {
	Speak(ctx context.Context, text string) (*backend.Audio, error)
}

func speakCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "speak TEXT...",
		Short: "Read text aloud with the backend voice",
		Long: "Send text to the backend text-to-speech endpoint and play the result.\n" +
			"With --out the audio is saved to a file instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return usageErrorf("nothing to speak")
			}
			client := a.client()

			if outPath != "" {
				clip, err := client.Speak(ctx, text)
				if err != nil {
					return err
				}
				if err := util.AtomicWriteFile(outPath, clip.Data, 0644); err != nil {
					return errors.Wrapf(err, "save %s", outPath)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Audio guardado en %s (%d bytes)\n",
					paint(SuccessStyle, "[OK]", useColor(cmd.OutOrStdout())), outPath, len(clip.Data))
				return nil
			}

			player, err := audio.Detect(a.cfg.Audio.Player)
			if err != nil {
				return err
			}
			return speak(ctx, client, player, text)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "save the audio to this file instead of playing it")
	return cmd
}

// speak synthesizes text and plays it to completion.
func speak(ctx context.Context, src synthesizer, player audio.Player, text string) error {
	clip, err := src.Speak(ctx, text)
	if err != nil {
		return err
	}
	log.Debug().
		Int("bytes", len(clip.Data)).
		Str("content_type", clip.ContentType).
		Msg("playing speech")
	return player.Play(ctx, clip)
}
