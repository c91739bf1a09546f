package config

import (
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

// MakeConnStr builds the postgres DSN of the save game database.
func MakeConnStr(conf Database) (string, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return "", fmt.Errorf("loading db host: %w", err)
	}

	user, err := commoncfg.LoadValueFromSourceRef(conf.User)
	if err != nil {
		return "", fmt.Errorf("loading db user: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(conf.Password)
	if err != nil {
		return "", fmt.Errorf("loading db password: %w", err)
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s",
		host, user, string(password), conf.Name, conf.Port), nil
}

// ValkeyCredentials resolves the address and credentials of the valkey server.
type ValkeyCredentials struct {
	Address  string
	Username string
	Password string
}

func LoadValkeyCredentials(conf ValKey) (ValkeyCredentials, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return ValkeyCredentials{}, fmt.Errorf("loading valkey host: %w", err)
	}

	user, err := commoncfg.LoadValueFromSourceRef(conf.User)
	if err != nil {
		return ValkeyCredentials{}, fmt.Errorf("loading valkey username: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(conf.Password)
	if err != nil {
		return ValkeyCredentials{}, fmt.Errorf("loading valkey password: %w", err)
	}

	return ValkeyCredentials{
		Address:  string(host),
		Username: string(user),
		Password: string(password),
	}, nil
}
