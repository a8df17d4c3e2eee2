package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/DarkAutumn/QuestionGrabber/config"
	"github.com/DarkAutumn/QuestionGrabber/grab"
	"github.com/DarkAutumn/QuestionGrabber/telemetry"
	"github.com/DarkAutumn/QuestionGrabber/twitchapi"
)

// userNotice msg-ids that announce a (re)subscription.
var subNoticeIDs = map[string]bool{
	"sub":             true,
	"resub":           true,
	"subgift":         true,
	"anonsubgift":     true,
	"giftpaidupgrade": true,
}

// Start runs the chat connection until ctx is cancelled, feeding g and dir.
// It blocks; run it on its own goroutine.
func Start(ctx context.Context, cfg *config.Config, g *grab.Grabber, dir *grab.ChannelDirectory) {
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("chat disabled", slog.Any("err", err))
		return
	}

	helix := twitchapi.NewHelixClient(cfg.TwitchClientID, cfg.TwitchClientSecret)
	if helix == nil {
		slog.Info("helix creds not set; reconnects will not be live-gated")
	}

	channel := strings.ToLower(cfg.TwitchChannel)
	for {
		if ctx.Err() != nil {
			return
		}
		err := connectOnce(ctx, cfg, channel, g, dir)
		telemetry.SetChatConnected(false)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Error("twitch chat connection lost", slog.Any("err", err), slog.String("channel", channel))
			g.OnStatus("Disconnected from chat: " + err.Error())
		}
		waitUntilLive(ctx, helix, channel, cfg.LivePollInterval)
	}
}

// connectOnce wires callbacks and blocks in Connect until the connection ends.
func connectOnce(ctx context.Context, cfg *config.Config, channel string, g *grab.Grabber, dir *grab.ChannelDirectory) error {
	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)

	client.OnConnect(func() {
		telemetry.SetChatConnected(true)
		slog.Info("connected to twitch chat", slog.String("channel", channel))
		g.OnStatus("Connected to #" + channel)
	})

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		user := msg.User.Name
		// Fold badge state into the directory before classifying, so the
		// lookup the classifier makes reflects this very message.
		for badge := range msg.User.Badges {
			switch badge {
			case "moderator", "broadcaster":
				dir.AddModerator(user)
			case "subscriber", "founder":
				dir.AddSubscriber(user)
				g.OnInformSubscriber(user)
			case "turbo":
				dir.AddTurbo(user)
			}
		}
		g.OnMessage(user, msg.Message)
	})

	client.OnUserNoticeMessage(func(msg twitch.UserNoticeMessage) {
		if !subNoticeIDs[msg.MsgID] {
			return
		}
		user := msg.User.Name
		if recipient := msg.MsgParams["msg-param-recipient-user-name"]; recipient != "" {
			user = recipient
		}
		dir.AddSubscriber(user)
		g.OnUserSubscribed(user)
	})

	client.OnNoticeMessage(func(msg twitch.NoticeMessage) {
		g.OnStatus(msg.Message)
	})

	client.Join(channel)

	// Tear the connection down when the service stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := client.Disconnect(); err != nil {
				slog.Debug("twitch disconnect", slog.Any("err", err))
			}
		case <-done:
		}
	}()

	return client.Connect()
}

// waitUntilLive blocks until the channel is live again (or ctx ends). Without
// helix credentials it degrades to a plain backoff delay.
func waitUntilLive(ctx context.Context, helix *twitchapi.HelixClient, channel string, poll time.Duration) {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	if helix == nil {
		select {
		case <-ctx.Done():
		case <-time.After(poll):
		}
		return
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		live, err := helix.IsLive(ctx, channel)
		if err != nil {
			slog.Debug("live status check failed", slog.Any("err", err))
		} else if live {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
