package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openinterx/gomavi/pkg/auth"
	"github.com/openinterx/gomavi/pkg/client"
	"github.com/openinterx/gomavi/pkg/model"
	"github.com/openinterx/gomavi/pkg/types"
)

var (
	apiKey  string
	baseURL string
	debug   bool
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "mavi",
		Short:   "Mavi Video AI Platform CLI",
		Version: client.Version,
		Long: `A command-line interface for the Mavi Video AI Platform.

Upload videos, search them with natural language, chat about their contents
and manage the video library. The API key is read from --api-key or the
MAVI_API_KEY environment variable (a .env file is honored).`,
		Example: `  mavi upload ./olympicRacer.mp4 --name olympicRacer.mp4
  mavi search "Olympic athletes, running"
  mavi chat "what is the video about?" --videos mavi_video_561730031559114752 --stream`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if debug {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Mavi API key (defaults to MAVI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "override the Mavi backend base URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		uploadCmd(),
		searchCmd(),
		searchDBCmd(),
		clipsCmd(),
		chatCmd(),
		deleteCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func buildClient(ctx context.Context) (*client.MaviBindingClient, error) {
	builder := client.NewMaviClient(apiKey).WithLogger(log.Logger)
	if apiKey == "" {
		builder = builder.WithKeyProvider(auth.NewEnvKey(""))
	}
	if baseURL != "" {
		builder = builder.WithBaseURL(baseURL)
	}
	return builder.Build(ctx)
}

func uploadCmd() *cobra.Command {
	var (
		name     string
		callback string
		fromURL  bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file|url>",
		Short: "Upload a video file or a remote media URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := buildClient(cmd.Context())
			if err != nil {
				return err
			}

			var video *model.Video
			if fromURL {
				video, err = cl.VideoMng.UploadFromURL(cmd.Context(), &model.UploadFromURLRequest{
					VideoName:   name,
					URL:         args[0],
					CallbackURI: callback,
				})
			} else {
				uploadName := name
				if uploadName == "" {
					uploadName = args[0]
				}
				video, err = cl.VideoMng.Upload(cmd.Context(), &model.UploadRequest{
					VideoName:   uploadName,
					VideoPath:   args[0],
					CallbackURI: callback,
				})
			}
			if err != nil {
				return err
			}
			return printJSON(video)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name to store the video under (defaults to the file name)")
	cmd.Flags().StringVar(&callback, "callback", "", "public callback URL notified when parsing finishes")
	cmd.Flags().BoolVar(&fromURL, "from-url", false, "treat the argument as a media URL to download first")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search videos with a natural language query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := buildClient(cmd.Context())
			if err != nil {
				return err
			}
			hits, err := cl.Search.Videos(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(hits)
		},
	}
}

func searchDBCmd() *cobra.Command {
	var (
		status   string
		page     int
		pageSize int
		since    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "search-db",
		Short: "List videos by status and upload time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := buildClient(cmd.Context())
			if err != nil {
				return err
			}

			req := &model.SearchMetadataRequest{
				VideoStatus: types.VideoStatus(status),
				Page:        page,
				PageSize:    pageSize,
			}
			if since > 0 {
				req.EndTime = time.Now()
				req.StartTime = req.EndTime.Add(-since)
			}

			videos, err := cl.VideoMng.SearchMetadata(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(videos)
		},
	}

	cmd.Flags().StringVar(&status, "status", string(types.VideoStatusParse), "video status to filter by (PARSE, UNPARSE, FAIL)")
	cmd.Flags().IntVar(&page, "page", model.DefaultSearchPage, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", model.DefaultSearchPageSize, "results per page")
	cmd.Flags().DurationVar(&since, "since", 0, "upload time window ending now, e.g. 168h (defaults to 7 days)")
	return cmd
}

func clipsCmd() *cobra.Command {
	var videos []string

	cmd := &cobra.Command{
		Use:   "clips <query>",
		Short: "Search for matching clips inside videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := buildClient(cmd.Context())
			if err != nil {
				return err
			}
			clips, err := cl.Search.Clips(cmd.Context(), args[0], videos)
			if err != nil {
				return err
			}
			return printJSON(clips)
		},
	}

	cmd.Flags().StringSliceVar(&videos, "videos", nil, "video numbers to search within (all parsed videos when empty)")
	return cmd
}

func chatCmd() *cobra.Command {
	var (
		videos []string
		stream bool
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Chat with the AI assistant about specific videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := buildClient(cmd.Context())
			if err != nil {
				return err
			}

			req := &model.ChatRequest{
				VideoNos: videos,
				Message:  args[0],
			}

			if !stream {
				resp, err := cl.Chat.Ask(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Println(resp.Msg)
				return nil
			}

			chunks, errCh := cl.Chat.Stream(cmd.Context(), req)
			for chunk := range chunks {
				fmt.Print(chunk.Content)
			}
			fmt.Println()
			if err, ok := <-errCh; ok && err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&videos, "videos", nil, "video numbers to chat about (required)")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the answer as it is generated")
	cmd.MarkFlagRequired("videos")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <videoNo>...",
		Short: "Delete videos from the platform",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := buildClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := cl.VideoMng.Delete(cmd.Context(), args); err != nil {
				return err
			}
			log.Info().Int("count", len(args)).Msg("videos deleted")
			return nil
		},
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
