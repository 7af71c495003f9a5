package util

import (
	"github.com/ValentinKolb/rKV/lib/buffer"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the CLI
	EnvPrefix = "rkv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupLinkFlags adds the per-connection link flags to a command
func SetupLinkFlags(cmd *cobra.Command) {
	key := "link-initial-buffer"
	cmd.PersistentFlags().Int(key, buffer.DefaultInitial, WrapString("Initial capacity of a link buffer (in bytes)"))

	key = "link-min-buffer"
	cmd.PersistentFlags().Int(key, buffer.DefaultMin/1024, WrapString("Capacity of a link buffer after its first growth (in KB)"))

	key = "link-max-buffer"
	cmd.PersistentFlags().Int(key, buffer.DefaultMax/(1024*1024), WrapString("Hard ceiling of a link buffer (in MB). A peer exceeding it is disconnected"))

	key = "link-max-packet"
	cmd.PersistentFlags().Int(key, common.DefaultMaxPacketSize/(1024*1024), WrapString("Largest request or response accepted on a link (in MB)"))

	key = "link-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY on every link"))

	key = "link-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 60, WrapString("The keepalive interval of every link (in seconds, 0 disables keepalive)"))

	key = "link-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time of every link (in seconds, -1 keeps the OS default)"))

	key = "link-dial-timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("The connect timeout of outgoing links (in seconds)"))
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "localhost:8888", WrapString("The address of the rKV node (host:port)"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request on a fresh link"))

	SetupLinkFlags(cmd)
}

// InitConfig loads .env files and makes viper read RKV_ environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetLinkConfig reads the link configuration from viper
func GetLinkConfig() common.LinkConfig {
	return common.LinkConfig{
		InitialBufferSize: viper.GetInt("link-initial-buffer"),
		MinBufferSize:     viper.GetInt("link-min-buffer") * 1024,
		MaxBufferSize:     viper.GetInt("link-max-buffer") * 1024 * 1024,
		MaxPacketSize:     viper.GetInt("link-max-packet") * 1024 * 1024,
		TCPNoDelay:        viper.GetBool("link-tcp-nodelay"),
		TCPKeepAliveSec:   viper.GetInt("link-tcp-keepalive"),
		TCPLingerSec:      viper.GetInt("link-tcp-linger"),
		DialTimeoutSecond: viper.GetInt("link-dial-timeout"),
	}
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
		Link:          GetLinkConfig(),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
