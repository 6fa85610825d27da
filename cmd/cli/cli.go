package cli

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const SoftwareVersion = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "sortition",
	Short: "the vrf + vdf proposer sortition engine",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(SoftwareVersion)
	},
}

var (
	config, l       = lib.Config{}, lib.LoggerI(nil)
	DataDir, vrfKey = "", (*VRFKey)(nil)
	vrf             = crypto.VRFI(nil)
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(difficultyCmd)
	rootCmd.AddCommand(proposeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.PersistentFlags().StringVar(&DataDir, "data-dir", lib.DefaultDataDirPath(), "custom data directory location")
	cobra.OnInitialize(func() {
		config, vrfKey = InitializeDataDirectory(DataDir, lib.NewDefaultLogger())
		l = lib.NewLogger(config.LoggerConfig(), DataDir)
		var err error
		if vrf, err = crypto.NewVRF(config.VRFScheme); err != nil {
			l.Fatal(lib.ErrInvalidVRFScheme(err).Error())
		}
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// VRFKey is the local VRF key pair as saved in the data directory
type VRFKey struct {
	Scheme     string       `json:"scheme"`
	PrivateKey lib.HexBytes `json:"privateKey"`
	PublicKey  lib.HexBytes `json:"publicKey"`
}

// InitializeDataDirectory() populates the data directory with configuration and key files if missing
func InitializeDataDirectory(dataDirPath string, log lib.LoggerI) (c lib.Config, key *VRFKey) {
	// make the data dir if missing
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		log.Fatal(err.Error())
	}
	// make the config.json file if missing
	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.ConfigFilePath)
		c = lib.DefaultConfig()
		c.DataDirPath = dataDirPath
		if err = c.WriteToFile(configFilePath); err != nil {
			log.Fatal(err.Error())
		}
	}
	// load the config object
	c, err := lib.NewConfigFromFile(configFilePath)
	if err != nil {
		log.Fatal(err.Error())
	}
	// set the data-directory
	c.DataDirPath = dataDirPath
	if err = c.Validate(); err != nil {
		log.Fatal(err.Error())
	}
	v, e := crypto.NewVRF(c.VRFScheme)
	if e != nil {
		log.Fatal(lib.ErrInvalidVRFScheme(e).Error())
	}
	// make the vrf key file if missing
	if _, e = os.Stat(filepath.Join(dataDirPath, lib.VRFKeyFilePath)); errors.Is(e, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.VRFKeyFilePath)
		privateKey, publicKey, er := v.GenerateKey()
		if er != nil {
			log.Fatal(er.Error())
		}
		if err = lib.SaveJSONToFile(&VRFKey{Scheme: v.Name(), PrivateKey: privateKey, PublicKey: publicKey}, dataDirPath, lib.VRFKeyFilePath); err != nil {
			log.Fatal(err.Error())
		}
	}
	// load the vrf key
	key = new(VRFKey)
	if err = lib.NewJSONFromFile(key, dataDirPath, lib.VRFKeyFilePath); err != nil {
		log.Fatal(err.Error())
	}
	if key.Scheme != v.Name() {
		log.Fatalf("%s holds a %s key but the config selects %s", lib.VRFKeyFilePath, key.Scheme, v.Name())
	}
	return
}

func writeToConsole(a any, err error) {
	if err != nil {
		l.Fatal(err.Error())
	}
	switch a.(type) {
	case int, uint16, uint32, uint64:
		p := message.NewPrinter(language.English)
		if _, err := p.Printf("%d\n", a); err != nil {
			l.Fatal(err.Error())
		}
	case string, *string:
		fmt.Println(a)
	default:
		s, err := lib.MarshalJSONIndentString(a)
		if err != nil {
			l.Fatal(err.Error())
		}
		fmt.Println(s)
	}
}

func argToUint64(arg string) uint64 {
	i, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		l.Fatal(lib.ErrInvalidArgument(err.Error()).Error())
	}
	return i
}

func argToBytes(arg string) []byte {
	bz, err := lib.StringToBytes(arg)
	if err != nil {
		l.Fatal(err.Error())
	}
	return bz
}
