package main

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bind panics when the flag is missing, which only happens if the command tree is misdeclared
func bind(v *viper.Viper, flag *pflag.Flag, key string) {
	if flag == nil {
		panic(fmt.Sprintf("no flag bound to %v", key))
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
