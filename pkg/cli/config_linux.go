package cli

import "flag"

func (c *Config) registerFlagsOsSpecific(fs *flag.FlagSet) {
	fs.IntVar(&c.BtAdapterID, "bt-adapter", 0, "Index of the Bluetooth adapter to use (0 for hci0). Defaults to $GOSTT_BT_ADAPTER.")
}
