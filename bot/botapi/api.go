// The internal slash command handler of the bot
package botapi

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Context struct {
	// Filled in on every command execution
	Command     Command
	Interaction *discordgo.Interaction
	Session     *discordgo.Session
	Logger      *zap.Logger

	// Bounded by the command timeout, cancelled once the callback returns
	Ctx context.Context
}

func (ctx *Context) Reply(text string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	ctx.Session.InteractionRespond(ctx.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   flags,
		},
	})
}

// UserID returns the invoking user, in DMs the interaction has no member
func (ctx *Context) UserID() string {
	return InteractionUserID(ctx.Interaction)
}

func InteractionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}

	if i.User != nil {
		return i.User.ID
	}

	return ""
}

type Command struct {
	Name        string
	Description string
	Callback    func(*Context)
}

type Commands struct {
	Logger  *zap.Logger
	Timeout time.Duration

	cmdMap map[string]Command
}

func NewCommands(logger *zap.Logger) *Commands {
	return &Commands{
		Logger:  logger,
		Timeout: 15 * time.Second,
		cmdMap:  make(map[string]Command),
	}
}

func (c *Commands) AddCommand(cmd Command) {
	if cmd.Name == "" {
		panic("Command name cannot be empty")
	}

	if cmd.Description == "" {
		panic(fmt.Sprintf("Command %s has no description", cmd.Name))
	}

	if cmd.Callback == nil {
		panic("Command callback cannot be nil")
	}

	if _, ok := c.cmdMap[cmd.Name]; ok {
		panic(fmt.Sprintf("Command %s registered twice", cmd.Name))
	}

	c.cmdMap[cmd.Name] = cmd
}

// ApplicationCommands returns the definitions sent to discord, sorted by name
func (c *Commands) ApplicationCommands() []*discordgo.ApplicationCommand {
	dm := true

	cmdList := make([]*discordgo.ApplicationCommand, 0, len(c.cmdMap))
	for _, cmd := range c.cmdMap {
		cmdList = append(cmdList, &discordgo.ApplicationCommand{
			Name:         cmd.Name,
			Description:  cmd.Description,
			DMPermission: &dm,
		})
	}

	sort.Slice(cmdList, func(i, j int) bool {
		return cmdList[i].Name < cmdList[j].Name
	})

	return cmdList
}

// helper method used to register the commands with discord
func (c *Commands) RegisterWithAPI(s *discordgo.Session) error {
	currentUser := s.State.User

	_, err := s.ApplicationCommandBulkOverwrite(currentUser.ID, "", c.ApplicationCommands())

	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	c.Logger.Info("Registered commands", zap.String("user", currentUser.Username), zap.Int("count", len(c.cmdMap)))
	return nil
}

func (c *Commands) Start(sess *discordgo.Session) {
	sess.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}

		cmd, ok := c.cmdMap[i.ApplicationCommandData().Name]

		if !ok {
			return
		}

		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
			defer cancel()

			defer func() {
				if r := recover(); r != nil {
					c.Logger.Error("Panic in command callback", zap.Any("panic", r), zap.String("command", cmd.Name))
				}
			}()

			cmd.Callback(&Context{
				Session:     s,
				Command:     cmd,
				Interaction: i.Interaction,
				Logger:      c.Logger,
				Ctx:         cctx,
			})
		}()
	})
}
